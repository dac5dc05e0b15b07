package cli

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OverrideVar names an env file that wins over the --env flag.
const OverrideVar = "NEWSWIRE_ENV_FILE"

// ErrNoEnvFile is returned by Load when no candidate file could be read.
var ErrNoEnvFile = errors.New("no env file loaded")

// EnvLoader loads .env files with a predictable override order:
// $NEWSWIRE_ENV_FILE, the --env value, its basename, then the default.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load overloads the first readable candidate into the process environment
// and returns its path.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	requested := ""
	for _, path := range l.candidates() {
		if requested == "" {
			requested = path
		}
		if err := godotenv.Overload(path); err == nil {
			log.Printf("Loaded environment from: %s", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoEnvFile, requested)
}

// LoadOptional is Load for deployments that export variables directly:
// a missing file is not an error.
func (l *EnvLoader) LoadOptional() string {
	path, err := l.Load()
	if err != nil {
		log.Printf("Continuing with process environment: %v", err)
		return ""
	}
	return path
}

func (l *EnvLoader) candidates() []string {
	var out []string
	seen := make(map[string]struct{}, 4)
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	add(os.Getenv(OverrideVar))
	requested := strings.TrimSpace(derefString(l.value))
	if requested == "" {
		requested = l.defaultPath
	}
	add(requested)
	if base := filepath.Base(requested); base != "." && base != string(filepath.Separator) {
		add(base)
	}
	add(l.defaultPath)
	return out
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
