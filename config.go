package starfish

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/rodneyosodo/starfish/run"
)

const (
	DefCoordinatorURL  = "http://localhost:7070"
	DefTLSVerification = false
)

// Config is the on-disk definition of a federated job plus the
// connection details the CLI and sites need to reach the coordinator.
type Config struct {
	CoordinatorURL string  `toml:"coordinator_url"`
	Run            run.Run `toml:"run"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg := Config{
		CoordinatorURL: DefCoordinatorURL,
	}
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	for i := range cfg.Run.Tasks {
		cfg.Run.Tasks[i].Normalize()
	}

	return &cfg, nil
}
