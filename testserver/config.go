package testserver

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	TestServer struct {
		Host    string `yaml:"host"`
		Network string `yaml:"network"`
		Debug   bool   `yaml:"debug"`
		Headers []struct {
			Key   string `yaml:"key"`
			Value string `yaml:"value"`
		} `yaml:"headers"`
	} `yaml:"testserver"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return OptionFunc(func(o *Options) {
		if cfg.TestServer.Host != "" {
			o.Host = cfg.TestServer.Host
		}
		if cfg.TestServer.Network != "" {
			o.Network = cfg.TestServer.Network
		}
		if cfg.TestServer.Debug {
			o.DebugMode = true
		}

		for _, header := range cfg.TestServer.Headers {
			if header.Key == "" {
				continue
			}
			if o.Headers == nil {
				o.Headers = make(map[string]string)
			}
			o.Headers[header.Key] = header.Value
		}
	}), nil
}

// WithConfig parses YAML bytes following testserver.yaml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("testserver.WithConfig: %w", err))
		})
	}
	return opt
}

// WithConfigFile loads a YAML file and applies it to Options.
// It panics if the file cannot be read or YAML is invalid.
func WithConfigFile(path string) Option {
	b, err := os.ReadFile(path)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("testserver.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
