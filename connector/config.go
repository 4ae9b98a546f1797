package connector

import (
	"bytes"
	_ "embed"
	"fmt"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

//go:embed client.yaml
var bundledConfig []byte

const (
	// HomeConfigDir is the directory below the user's home that may hold a config override
	HomeConfigDir = ".dkvc"
	// ConfigFileName is the name of the config override file
	ConfigFileName = "client.yaml"
	// ConfigEnvVar names an explicit config file, it wins over the home directory override
	ConfigEnvVar = "DKVC_CONFIG"
	// EnvPrefix is the prefix of environment variables overriding single config values
	EnvPrefix = "dkvc"
)

// Config is the configuration a Session opens connections with
type Config struct {
	// ProjectKey is the key of the project root inside the database root
	ProjectKey string `mapstructure:"project-key"`
	// KeyPrefix is prepended to the store key of every record
	KeyPrefix string `mapstructure:"key-prefix"`
	// Shard is the dKV shard holding the records
	Shard uint64 `mapstructure:"shard"`
	// Transport is one of tcp, unix, http
	Transport string `mapstructure:"transport"`
	// Serializer is one of json, gob
	Serializer string `mapstructure:"serializer"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log-level"`
	// CacheTimeoutSecond is the timeout of CachedConnection wrappers on a session using this config.
	// Zero selects DefaultTimeout.
	CacheTimeoutSecond int `mapstructure:"cache-timeout"`

	Client common.ClientConfig `mapstructure:"client"`

	// Source is the file the values were read from, empty for the bundled default
	Source string `mapstructure:"-"`
}

// CacheTimeout returns CacheTimeoutSecond as a duration
func (c *Config) CacheTimeout() time.Duration {
	if c.CacheTimeoutSecond == 0 {
		return DefaultTimeout
	}
	return time.Duration(c.CacheTimeoutSecond) * time.Second
}

// Validate checks the values that can not be checked by the transport itself
func (c *Config) Validate() error {
	if c.ProjectKey == "" {
		return fmt.Errorf("invalid config: project-key must not be empty")
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("invalid config: key-prefix must not be empty")
	}
	if _, err := serializer.ByName(c.Serializer); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := NewTransport(c.Transport); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := common.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.CacheTimeoutSecond < 0 {
		return fmt.Errorf("invalid config: cache-timeout must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	sb := &strings.Builder{}

	source := c.Source
	if source == "" {
		source = "bundled default"
	}

	common.WriteSection(sb, "Connector")
	common.WriteField(sb, "Config Source", source)
	common.WriteField(sb, "Project Key", c.ProjectKey)
	common.WriteField(sb, "Key Prefix", c.KeyPrefix)
	common.WriteField(sb, "Shard", strconv.FormatUint(c.Shard, 10))
	common.WriteField(sb, "Transport", c.Transport)
	common.WriteField(sb, "Serializer", c.Serializer)
	common.WriteField(sb, "Log Level", c.LogLevel)
	common.WriteField(sb, "Cache Timeout", fmt.Sprintf("%d sec", c.CacheTimeoutSecond))
	sb.WriteString(c.Client.String())

	return sb.String()
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// LocateConfig returns the config file to read on top of the bundled default:
// the file named by $DKVC_CONFIG, else ~/.dkvc/client.yaml if it exists, else "".
func LocateConfig() string {
	if path := os.Getenv(ConfigEnvVar); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(home, HomeConfigDir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// LoadConfig reads the bundled default, merges the file at path on top of it
// (LocateConfig() if path is empty) and applies environment overrides.
// A config file that can not be read is an error, it is never skipped silently.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(bundledConfig)); err != nil {
		return Config{}, fmt.Errorf("reading bundled config: %w", err)
	}

	if path == "" {
		path = LocateConfig()
	}
	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			v.SetConfigType(ext)
		}
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	config.Source = path

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// DefaultConfig returns the bundled default configuration without any overrides
func DefaultConfig() Config {
	v := viper.New()
	v.SetConfigType("yaml")

	var config Config
	if err := v.ReadConfig(bytes.NewReader(bundledConfig)); err != nil {
		panic(fmt.Sprintf("bundled config is invalid: %v", err))
	}
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("bundled config is invalid: %v", err))
	}
	return config
}
