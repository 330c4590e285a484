// Package env loads .env files into the process environment.
package env

import (
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// DefaultFile is loaded when no files are named.
const DefaultFile = ".env"

// LoadEnv loads the given .env files, or DefaultFile when none are given, and
// returns the files it loaded. Variables already set in the environment win.
// A missing default file is not an error; an explicitly named file that
// cannot be read is.
//
// Loading happens before the logger exists, so callers log the result.
func LoadEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultFile); err != nil {
			return nil, nil
		}
		return []string{DefaultFile}, nil
	}
	if err := godotenv.Load(files...); err != nil {
		return nil, errors.Wrapf(err, "load env files %v", files)
	}
	return files, nil
}
