package confkit

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

// Environment switches read before any .env file is loaded.
const (
	EnvFileVar     = "COINTRACK_ENV_FILE"
	NoDotenvVar    = "COINTRACK_NO_DOTENV"
	OverloadEnvVar = "COINTRACK_DOTENV_OVERLOAD"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process. COINTRACK_ENV_FILE names
// a single file; otherwise every .env from this package up to the repository
// root is read, then one in the working directory. Variables already set win
// unless COINTRACK_DOTENV_OVERLOAD=1.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv(NoDotenvVar) == "1" {
		return
	}
	for _, p := range dotenvPaths() {
		loadEnvFile(p)
	}
}

func loadEnvFile(path string) {
	if !fileExists(path) {
		return
	}
	if os.Getenv(OverloadEnvVar) == "1" {
		_ = godotenv.Overload(path)
		return
	}
	_ = godotenv.Load(path)
}

// dotenvPaths lists candidate .env files in load order.
func dotenvPaths() []string {
	if envFile := os.Getenv(EnvFileVar); envFile != "" {
		return []string{envFile}
	}
	var paths []string
	if _, file, _, ok := runtime.Caller(0); ok {
		findRoot(filepath.Dir(file), func(dir string) {
			paths = append(paths, filepath.Join(dir, ".env"))
		})
	}
	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, ".env")
		for _, p := range paths {
			if p == local {
				return paths
			}
		}
		paths = append(paths, local)
	}
	return paths
}
