package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	appNameVar    = "APP_NAME"
	dataFolderVar = "DATA_FOLDER"
)

func init() {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ReceiptTracker")
}

func (EnvVars) GetDataFolder() string {
	folder := GetEnv(dataFolderVar, "")
	if folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.receipttrack"
	}
	return filepath.Join(home, ".receipttrack")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
