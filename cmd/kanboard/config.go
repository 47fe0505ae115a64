package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/kanboard/kanboard-go/internal/history"
	"github.com/kanboard/kanboard-go/pkg/kanboard"
	"github.com/kanboard/kanboard-go/pkg/log"
)

const (
	configDirEnv       = "KANBOARD_CONFIG_DIR"
	defaultHistoryName = "kanboard-history.db"
)

// Config represents the CLI configuration.
type Config struct {
	Client             kanboard.Config
	Log                log.Config
	History            history.Config
	MaxConcurrentCalls int64  `env:"KANBOARD_MAX_CONCURRENT_CALLS" env-default:"4"`
	Output             string `env:"KANBOARD_OUTPUT" env-default:"table"` // table, json or yaml
}

// LoadConfig reads .env files from the working directory and the config
// directory, then the environment. Variables already set take precedence.
func LoadConfig() (*Config, error) {
	configDir, err := configDirPath()
	if err != nil {
		return nil, err
	}

	for _, envPath := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to load %s", envPath)
		}
	}

	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	if conf.History.DSN == defaultHistoryName {
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create config directory")
		}
		conf.History.DSN = filepath.Join(configDir, defaultHistoryName)
	}

	if conf.Client.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := promptPassword(conf.Client.Username)
		if err != nil {
			return nil, err
		}
		conf.Client.Password = password
	}

	return &conf, nil
}

func configDirPath() (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir, nil
	}

	userConfDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(userConfDir, "kanboard"), nil
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password or API token for %s: ", username)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return strings.TrimSpace(string(secret)), nil
}
