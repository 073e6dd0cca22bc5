package credstore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

const (
	fileMagic = "RTCS1"
	saltLen   = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// FileStore is an encrypted, file-backed Store. The whole payload is sealed
// with XChaCha20-Poly1305 under a scrypt-derived key; the salt and nonce are
// stored in the file header. Writes are atomic (temp file + rename).
type FileStore struct {
	path       string
	passphrase string

	mu   sync.Mutex
	data map[string]map[string][]byte
	salt []byte
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens (or creates) the encrypted store at path.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	fs := &FileStore{
		path:       path,
		passphrase: passphrase,
		data:       make(map[string]map[string][]byte),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) Get(namespace, key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ns, ok := fs.data[namespace]
	if !ok {
		return nil, apperrors.ErrKeyNotFound
	}
	value, ok := ns[key]
	if !ok {
		return nil, apperrors.ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (fs *FileStore) Set(namespace, key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ns, ok := fs.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		fs.data[namespace] = ns
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	ns[key] = stored
	return fs.save()
}

func (fs *FileStore) Delete(namespace, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ns, ok := fs.data[namespace]
	if !ok {
		return apperrors.ErrKeyNotFound
	}
	if _, ok := ns[key]; !ok {
		return apperrors.ErrKeyNotFound
	}
	delete(ns, key)
	return fs.save()
}

func (fs *FileStore) load() error {
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		fs.salt = make([]byte, saltLen)
		if _, err := rand.Read(fs.salt); err != nil {
			return errors.Wrap(err, "[FileStore.load] generate salt")
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[FileStore.load] read store file")
	}

	header := len(fileMagic) + saltLen + chacha20poly1305.NonceSizeX
	if len(raw) < header || string(raw[:len(fileMagic)]) != fileMagic {
		return apperrors.ErrStoreCorrupted
	}
	fs.salt = raw[len(fileMagic) : len(fileMagic)+saltLen]
	nonce := raw[len(fileMagic)+saltLen : header]
	ciphertext := raw[header:]

	aead, err := fs.aead()
	if err != nil {
		return err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return errors.Wrap(apperrors.ErrStoreCorrupted, "[FileStore.load] decrypt")
	}
	if err := json.Unmarshal(plaintext, &fs.data); err != nil {
		return errors.Wrap(apperrors.ErrStoreCorrupted, "[FileStore.load] unmarshal")
	}
	return nil
}

// save is called with fs.mu held.
func (fs *FileStore) save() error {
	plaintext, err := json.Marshal(fs.data)
	if err != nil {
		return errors.Wrap(err, "[FileStore.save] marshal")
	}

	aead, err := fs.aead()
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[FileStore.save] generate nonce")
	}

	out := make([]byte, 0, len(fileMagic)+saltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, fileMagic...)
	out = append(out, fs.salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.save] create data folder")
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.save] write temp file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.save] rename")
	}
	return nil
}

func (fs *FileStore) aead() (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(fs.passphrase), fs.salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.aead] derive key")
	}
	return chacha20poly1305.NewX(key)
}
