package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is consulted when --config is not given. A missing file
// is not an error; flags and defaults apply.
const DefaultConfigPath = "circulate.yaml"

// Config is the optional yaml configuration file. Flags always win over
// config values.
type Config struct {
	// Database is the path to the local SQLite file.
	Database string `yaml:"database"`

	// Remote is the websocket URL of a sync gateway. When set, commands
	// operate against the remote store instead of the local database.
	Remote string `yaml:"remote"`

	// Listen is the bind address for the serve command.
	Listen string `yaml:"listen"`
}

// LoadConfig reads a yaml config file. When path is empty, the default path
// is tried and an absent file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
