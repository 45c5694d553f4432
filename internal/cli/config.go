package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the .widgetchat project config written by "join".
type Config struct {
	Server string `json:"server"`
	Room   string `json:"room"`
	Sender string `json:"sender"`
}

const (
	configFileName = ".widgetchat"
	seqFileName    = ".widgetchat-seq"
)

// findUp walks up from dir looking for a file named name and returns its
// path, or "" if no ancestor has one.
func findUp(dir, name string) string {
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadConfig reads the nearest .widgetchat config from dir or any parent
// directory. A config that does not parse is ignored.
func loadConfig(dir string) *Config {
	path := findUp(dir, configFileName)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cfg Config
	if json.Unmarshal(data, &cfg) != nil {
		return nil
	}
	return &cfg
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// resolveDefaults applies the precedence env > config > built-in defaults.
// Flags take precedence over all of these when set.
func resolveDefaults(cfg *Config, getenv func(string) string) Config {
	out := Config{Server: "http://localhost:8080"}
	if cfg != nil {
		if cfg.Server != "" {
			out.Server = cfg.Server
		}
		out.Room = cfg.Room
		out.Sender = cfg.Sender
	}
	if v := getenv("WIDGETCHAT_SERVER"); v != "" {
		out.Server = v
	}
	if v := getenv("WIDGETCHAT_ROOM"); v != "" {
		out.Room = v
	}
	if v := getenv("WIDGETCHAT_SENDER"); v != "" {
		out.Sender = v
	}
	return out
}
