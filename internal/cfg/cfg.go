package cfg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/env"
)

const FileName = ".notifier"

var mu sync.Mutex

// SecretKeys are the entries holding credentials.
var SecretKeys = []string{"ID_TOKEN", "REFRESH_TOKEN", "AUTH_API_KEY", "DATABASE_PASSWORD"}

// Mask hides all but the first characters of secret entries.
func Mask(name string, value string) string {
	if value == "" || !slices.Contains(SecretKeys, name) {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****"
}

// Path returns the config file in use, falling back to $HOME/.notifier.
func Path() string {
	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		home, _ := os.UserHomeDir()
		configPath = filepath.Join(home, FileName)
	}
	return configPath
}

// Update decodes the config file, lets f modify the entries and writes them back.
// The file is created with 0600 since it also stores the session tokens.
func Update(f func(map[string]string)) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	configPath := Path()
	cfgFile, err := os.OpenFile(configPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return "", err
	}
	defer cfgFile.Close()

	cfg := make(map[string]string)
	if err = env.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return "", err
	}

	f(cfg)

	if err = cfgFile.Truncate(0); err != nil {
		return "", err
	}
	if _, err = cfgFile.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return configPath, env.NewEncoder(cfgFile).Encode(cfg)
}

func Get() (map[string]string, error) {
	mu.Lock()
	defer mu.Unlock()

	cfgFile, err := os.Open(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer cfgFile.Close()

	cfg := make(map[string]string)
	if err = env.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
