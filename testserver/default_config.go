package testserver

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the file FindDefaultConfigFile looks for.
const ConfigFileName = "testserver.yaml"

// ConfigEnv names a config file that takes precedence over the search.
const ConfigEnv = "TESTSERVER_CONFIG"

// LookupConfigFile returns the first regular file named ConfigFileName in
// each dir, or in its testserver subdirectory.
func LookupConfigFile(dirs ...string) (string, error) {
	for _, dir := range dirs {
		for _, p := range []string{
			filepath.Join(dir, ConfigFileName),
			filepath.Join(dir, "testserver", ConfigFileName),
		} {
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no %s under %q", ErrConfigNotFound, ConfigFileName, dirs)
}

// FindDefaultConfigFile resolves $TESTSERVER_CONFIG, or else searches the
// working directory and then the executable's directory.
func FindDefaultConfigFile() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrConfigNotFound, ConfigEnv, err)
		}
		return p, nil
	}

	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	return LookupConfigFile(dirs...)
}

// WithDefaultConfig applies the file FindDefaultConfigFile resolves. The
// returned option panics when applied if there is none.
func WithDefaultConfig() Option {
	p, err := FindDefaultConfigFile()
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("testserver.WithDefaultConfig: %w", err))
		})
	}

	return WithConfigFile(p)
}
