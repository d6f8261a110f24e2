package page

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads DB_HOST, APP_ENV and friends from a dotenv file into the
// process environment. Variables already set in the environment win. A
// missing file is not an error; loaded reports whether a file was read.
func LoadDotEnv(path string) (loaded bool, err error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return true, nil
}
