package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultDotEnvFile is read from the working directory when present.
const DefaultDotEnvFile = ".env"

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set in the environment are not overridden, and a
// missing file is not an error. It reports whether a file was loaded.
func LoadDotEnv(path string) (bool, error) {
	if path == "" {
		path = DefaultDotEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, err
	}
	return true, nil
}
