package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alebeck/detach/internal/log"
	"github.com/alebeck/detach/internal/paths"
	"gopkg.in/yaml.v3"
)

const fileName = "config.toml"

// Path is the config file in use. A missing file is only an error if the
// path was chosen explicitly.
var Path string

var explicit bool

// Config holds launcher defaults as parsed from the config file and the
// DETACH_* environment variables. Flags take precedence over both.
type Config struct {
	// Umask is the octal mask for the launched program, e.g. "022".
	Umask string `toml:"umask" yaml:"umask"`
	// Strategy is either "reexec" or "direct".
	Strategy string `toml:"strategy" yaml:"strategy"`
	// KeepHangup leaves SIGHUP at its inherited disposition.
	KeepHangup bool `toml:"keep_hangup" yaml:"keep_hangup"`
	// ClearEnv starts the program with an empty environment.
	ClearEnv bool `toml:"clear_env" yaml:"clear_env"`
	// EnvFiles are dotenv files, relative paths are relative to the
	// config file.
	EnvFiles []string          `toml:"env_files" yaml:"env_files"`
	Env      map[string]string `toml:"env" yaml:"env"`
	Dir      string            `toml:"dir" yaml:"dir"`
}

func init() {
	if Path = os.Getenv("DETACH_CONFIG"); Path != "" {
		explicit = true
	} else {
		Path = filepath.Join(getConfigHome(), fileName)
	}
	Path = paths.ReplaceTilde(Path)
}

// SetPath selects a config file explicitly.
func SetPath(p string) {
	Path = paths.ReplaceTilde(p)
	explicit = true
}

func getConfigHome() string {
	if runtime.GOOS == "linux" {
		// Follow XDG specification on Linux
		h := os.Getenv("XDG_CONFIG_HOME")
		if h == "" {
			h = "~/.config"
		}
		return filepath.Join(h, "detach")
	}
	return "~/.detach"
}

// Load parses the config file, if any, and applies environment overrides.
func Load() (*Config, error) {
	var cfg Config

	if err := decodeFile(Path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, fmt.Errorf("could not decode config file: %w", err)
		}
		log.Debugf("No config file at %s", Path)
	}

	if v := os.Getenv("DETACH_UMASK"); v != "" {
		cfg.Umask = v
	}
	if v := os.Getenv("DETACH_STRATEGY"); v != "" {
		cfg.Strategy = v
	}

	base := filepath.Dir(Path)
	for i, f := range cfg.EnvFiles {
		cfg.EnvFiles[i] = paths.Resolve(f, base)
	}
	cfg.Dir = paths.ReplaceTilde(cfg.Dir)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return err
		}
		for _, k := range md.Undecoded() {
			log.Warningf("Unknown config key '%s' in %s", k, path)
		}
		return nil
	}
}

// Overrides returns the env table as KEY=VALUE pairs in key order.
func (c *Config) Overrides() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]string, len(keys))
	for i, k := range keys {
		kv[i] = k + "=" + c.Env[k]
	}
	return kv
}
