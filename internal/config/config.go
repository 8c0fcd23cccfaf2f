package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Share    ShareConfig   `mapstructure:"share" yaml:"share"`
	Log      LogConfig     `mapstructure:"log" yaml:"log"`
	Timeouts TimeoutConfig `mapstructure:"timeouts" yaml:"timeouts"`
	Lines    LineConfig    `mapstructure:"lines" yaml:"lines"`
	Poll     PollConfig    `mapstructure:"poll" yaml:"poll"`
	HTTP     HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ShareConfig identifies the remote share and how it tends to be mounted.
type ShareConfig struct {
	Server       string   `mapstructure:"server" yaml:"server"`
	Name         string   `mapstructure:"name" yaml:"name"`
	Path         string   `mapstructure:"path" yaml:"path"`
	MountName    string   `mapstructure:"mount_name" yaml:"mount_name"`
	Port         int      `mapstructure:"port" yaml:"port"`
	FallbackUID  int      `mapstructure:"fallback_uid" yaml:"fallback_uid"`
	DriveLetters []string `mapstructure:"drive_letters" yaml:"drive_letters"`
}

// LogConfig describes the log file naming convention.
type LogConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"` // skips discovery when set
	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	Extension  string `mapstructure:"extension" yaml:"extension"`
	DateLayout string `mapstructure:"date_layout" yaml:"date_layout"`
	Encoding   string `mapstructure:"encoding" yaml:"encoding"`
}

type TimeoutConfig struct {
	Probe     time.Duration `mapstructure:"probe" yaml:"probe"`
	Read      time.Duration `mapstructure:"read" yaml:"read"`
	Stat      time.Duration `mapstructure:"stat" yaml:"stat"`
	Discovery time.Duration `mapstructure:"discovery" yaml:"discovery"`
	Connect   time.Duration `mapstructure:"connect" yaml:"connect"`
	Ping      time.Duration `mapstructure:"ping" yaml:"ping"`
}

type LineConfig struct {
	OnDemand int `mapstructure:"on_demand" yaml:"on_demand"`
	Initial  int `mapstructure:"initial" yaml:"initial"`
	Update   int `mapstructure:"update" yaml:"update"`
}

type PollConfig struct {
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	ErrorInterval time.Duration `mapstructure:"error_interval" yaml:"error_interval"`
	Watch         bool          `mapstructure:"watch" yaml:"watch"`
}

type HTTPConfig struct {
	Bind string `mapstructure:"bind" yaml:"bind"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Share: ShareConfig{
			Server:       "10.12.100.19",
			Name:         "t$",
			Path:         "ACT/Logs/ACTSentinel",
			MountName:    "act_logs",
			Port:         445,
			FallbackUID:  1000,
			DriveLetters: []string{"T", "Z", "S"},
		},
		Log: LogConfig{
			Prefix:     "ACTSentinel",
			Extension:  "log",
			DateLayout: "20060102",
			Encoding:   "utf-8",
		},
		Timeouts: TimeoutConfig{
			Probe:     10 * time.Second,
			Read:      30 * time.Second,
			Stat:      10 * time.Second,
			Discovery: 15 * time.Second,
			Connect:   5 * time.Second,
			Ping:      3 * time.Second,
		},
		Lines: LineConfig{
			OnDemand: 1000,
			Initial:  100,
			Update:   500,
		},
		Poll: PollConfig{
			Interval:      2 * time.Second,
			ErrorInterval: 5 * time.Second,
			Watch:         true,
		},
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "sharetail.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// SetDefaults registers every default on v so that config files and
// environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("share.server", d.Share.Server)
	v.SetDefault("share.name", d.Share.Name)
	v.SetDefault("share.path", d.Share.Path)
	v.SetDefault("share.mount_name", d.Share.MountName)
	v.SetDefault("share.port", d.Share.Port)
	v.SetDefault("share.fallback_uid", d.Share.FallbackUID)
	v.SetDefault("share.drive_letters", d.Share.DriveLetters)

	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.prefix", d.Log.Prefix)
	v.SetDefault("log.extension", d.Log.Extension)
	v.SetDefault("log.date_layout", d.Log.DateLayout)
	v.SetDefault("log.encoding", d.Log.Encoding)

	v.SetDefault("timeouts.probe", d.Timeouts.Probe)
	v.SetDefault("timeouts.read", d.Timeouts.Read)
	v.SetDefault("timeouts.stat", d.Timeouts.Stat)
	v.SetDefault("timeouts.discovery", d.Timeouts.Discovery)
	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.ping", d.Timeouts.Ping)

	v.SetDefault("lines.on_demand", d.Lines.OnDemand)
	v.SetDefault("lines.initial", d.Lines.Initial)
	v.SetDefault("lines.update", d.Lines.Update)

	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.error_interval", d.Poll.ErrorInterval)
	v.SetDefault("poll.watch", d.Poll.Watch)

	v.SetDefault("http.bind", d.HTTP.Bind)
	v.SetDefault("http.port", d.HTTP.Port)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
}

// BindEnv makes every key overridable as SHARETAIL_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("sharetail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Log.Prefix) == "" {
		return fmt.Errorf("log.prefix must not be empty")
	}
	if strings.TrimSpace(c.Log.Extension) == "" {
		return fmt.Errorf("log.extension must not be empty")
	}
	if c.Log.Dir == "" && strings.TrimSpace(c.Share.Server) == "" {
		return fmt.Errorf("share.server is required when log.dir is not set")
	}
	for name, d := range map[string]time.Duration{
		"timeouts.probe":      c.Timeouts.Probe,
		"timeouts.read":       c.Timeouts.Read,
		"timeouts.stat":       c.Timeouts.Stat,
		"timeouts.discovery":  c.Timeouts.Discovery,
		"poll.interval":       c.Poll.Interval,
		"poll.error_interval": c.Poll.ErrorInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Lines.OnDemand <= 0 || c.Lines.Initial <= 0 || c.Lines.Update <= 0 {
		return fmt.Errorf("line limits must be positive")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}
