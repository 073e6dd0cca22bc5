package config

type StoreConfig interface {
	GetStorePassphrase() string
	GetBiometricServer() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetStorePassphrase is the passphrase protecting the on-disk credential
// store. On mobile platforms this would come from the OS keystore; for the
// CLI it comes from the environment.
func (Store) GetStorePassphrase() string {
	return GetEnv("STORE_PASSPHRASE", "receipttrack-local")
}

// GetBiometricServer is the fixed identifier under which biometric
// credentials are stored.
func (Store) GetBiometricServer() string {
	return GetEnv("BIOMETRIC_SERVER", "ReceiptTracker")
}
