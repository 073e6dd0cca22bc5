package credstorefakes

import (
	"sync"

	"github.com/receipttrack/receipttrack-go/credstore"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credstore.Store for tests.
type FakeStore struct {
	data map[string]map[string][]byte
	lock sync.RWMutex

	SetCalls    int
	DeleteCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: make(map[string]map[string][]byte)}
}

func (fs *FakeStore) Get(namespace, key string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	ns, ok := fs.data[namespace]
	if !ok {
		return nil, apperrors.ErrKeyNotFound
	}
	value, ok := ns[key]
	if !ok {
		return nil, apperrors.ErrKeyNotFound
	}
	return value, nil
}

func (fs *FakeStore) Set(namespace, key string, value []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.SetCalls++
	ns, ok := fs.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		fs.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (fs *FakeStore) Delete(namespace, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.DeleteCalls++
	ns, ok := fs.data[namespace]
	if !ok {
		return apperrors.ErrKeyNotFound
	}
	if _, ok := ns[key]; !ok {
		return apperrors.ErrKeyNotFound
	}
	delete(ns, key)
	return nil
}
