package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for xcf
type Config struct {
	Catalog struct {
		Roots    []string `mapstructure:"roots"`
		MaxDepth int      `mapstructure:"max_depth"`
	} `mapstructure:"catalog"`

	Automation struct {
		Timeout      time.Duration `mapstructure:"timeout"`
		BuildCommand string        `mapstructure:"build_command"`
		RunCommand   string        `mapstructure:"run_command"`
	} `mapstructure:"automation"`

	State struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"state"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	UI struct {
		Color bool `mapstructure:"color"`
	} `mapstructure:"ui"`

	DataDir string `mapstructure:"-"`
}

type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
	kindDuration
	kindList
)

// settingKeys lists every key `config` may read or write.
var settingKeys = map[string]keyKind{
	"catalog.roots":            kindList,
	"catalog.max_depth":        kindInt,
	"automation.timeout":       kindDuration,
	"automation.build_command": kindString,
	"automation.run_command":   kindString,
	"state.path":               kindString,
	"log.level":                kindString,
	"ui.color":                 kindBool,
}

// ConfigManager handles loading and saving configuration. v resolves
// effective values (defaults, file, env); file holds only what is written to
// config.yaml, so defaults that depend on the working directory or the
// environment are never persisted.
type ConfigManager struct {
	v          *viper.Viper
	file       *viper.Viper
	configPath string
	dataDir    string
}

// staticDefaults are written to a new config.yaml as a starting point.
var staticDefaults = map[string]interface{}{
	"catalog.max_depth":  3,
	"automation.timeout": "10m",
	"log.level":          "info",
	"ui.color":           true,
}

// DataDir returns the tool's data directory. <PREFIX>_HOME overrides the
// default of ~/.<name>.
func DataDir(name string) (string, error) {
	if dir := os.Getenv(EnvPrefix(name) + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home dir: %w", err)
	}
	return filepath.Join(home, "."+name), nil
}

// EnvPrefix is the environment variable prefix for a tool name.
func EnvPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// NewConfigManager initializes the configuration system
func NewConfigManager(name string) (*ConfigManager, error) {
	dataDir, err := DataDir(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	configPath := filepath.Join(dataDir, "config.yaml")

	file := viper.New()
	file.SetConfigFile(configPath)
	file.SetConfigType("yaml")

	// Create config file if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		for k, val := range staticDefaults {
			file.Set(k, val)
		}
		if err := file.SafeWriteConfigAs(configPath); err != nil {
			return nil, fmt.Errorf("writing initial config: %w", err)
		}
	}
	if err := file.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	for k, val := range staticDefaults {
		v.SetDefault(k, val)
	}
	// An empty root list means the working directory at load time.
	v.SetDefault("catalog.roots", []string{})
	v.SetDefault("automation.build_command", "")
	v.SetDefault("automation.run_command", "")
	v.SetDefault("state.path", filepath.Join(dataDir, "state.json"))

	v.SetEnvPrefix(EnvPrefix(name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &ConfigManager{v: v, file: file, configPath: configPath, dataDir: dataDir}, nil
}

// Load returns the current configuration
func (cm *ConfigManager) Load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.DataDir = cm.dataDir
	cfg.Catalog.Roots = cm.roots()
	if cfg.Catalog.MaxDepth < 1 {
		cfg.Catalog.MaxDepth = 1
	}
	return &cfg, nil
}

func (cm *ConfigManager) roots() []string {
	var roots []string
	for _, r := range cm.v.GetStringSlice("catalog.roots") {
		for _, item := range strings.Split(r, ",") {
			if item = strings.TrimSpace(item); item != "" {
				roots = append(roots, item)
			}
		}
	}
	if len(roots) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			roots = []string{cwd}
		}
	}
	return roots
}

// GetDataPath returns a path inside the data directory
func (cm *ConfigManager) GetDataPath(subpath string) string {
	return filepath.Join(cm.dataDir, subpath)
}

// Keys returns the settable keys in sorted order.
func (cm *ConfigManager) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the effective value of key as text.
func (cm *ConfigManager) Get(key string) (string, error) {
	kind, ok := settingKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	switch kind {
	case kindList:
		return strings.Join(cm.roots(), ","), nil
	case kindBool:
		return strconv.FormatBool(cm.v.GetBool(key)), nil
	case kindInt:
		return strconv.Itoa(cm.v.GetInt(key)), nil
	case kindDuration:
		return cm.v.GetDuration(key).String(), nil
	default:
		return cm.v.GetString(key), nil
	}
}

// Set validates value for key and persists it.
func (cm *ConfigManager) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	var parsed interface{}
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		parsed = b
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid positive integer for %s: %s", key, value)
		}
		parsed = n
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration for %s: %s", key, value)
		}
		parsed = d.String()
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return fmt.Errorf("empty list for %s", key)
		}
		parsed = items
	default:
		parsed = value
	}

	cm.file.Set(key, parsed)
	if err := cm.file.WriteConfigAs(cm.configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cm.v.Set(key, parsed)
	return nil
}
