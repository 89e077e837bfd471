package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads KEY=value files into the process environment. Variables
// that are already set win. Missing files are skipped; with no arguments
// ".env" in the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// APIKey returns the value of the environment variable named by
// chain.api_key_env.
func (j *Job) APIKey() string {
	if j.Chain.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(j.Chain.APIKeyEnv)
}
