package config

type Config interface {
	EnvConfig
	APIConfig
	AuthConfig
	StoreConfig
}

type mainConfig struct {
	EnvVars
	API
	Auth
	Store
}

func New() Config {
	return mainConfig{}
}
