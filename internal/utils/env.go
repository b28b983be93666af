package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const envFileName = ".env"

func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadEnv loads the first .env found in dirs, falling back to the project
// root for source checkouts. Variables already set in the environment win.
// It returns the loaded path, or os.ErrNotExist when there is none.
func LoadEnv(dirs ...string) (string, error) {
	candidates := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		if dir != "" {
			candidates = append(candidates, filepath.Join(dir, envFileName))
		}
	}
	if root, err := FindProjectRoot(); err == nil {
		candidates = append(candidates, filepath.Join(root, envFileName))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return path, err
		}
		return path, nil
	}
	return "", os.ErrNotExist
}
