package ccloud

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zpiroux/ccloud-kafka-example/ccloud/internal/cci"
	"github.com/zpiroux/geist/entity"
)

// ErrInvalidSettings is returned from LoadSettings if any environment override is invalid
var ErrInvalidSettings = errors.New("invalid settings")

// Settings keys. Each can be overridden with an environment variable named
// CCLOUD_ followed by the key in upper case with '.' replaced by '_', e.g.
// CCLOUD_CONFIG_FILE.
const (
	SettingConfigFile   = "config.file"
	SettingNumMessages  = "num.messages"
	SettingFlushTimeout = "flush.timeout"
	SettingAdminTimeout = "admin.timeout"
	SettingLogLevel     = "log.level"
)

const envPrefix = "CCLOUD"

// Default values if not overridden
const (
	DefaultConfigFile = "confluent.config"
	DefaultLogLevel   = "info"
)

// Settings controls the program itself, as opposed to the Kafka client
// properties found in the config file.
type Settings struct {
	// ConfigFile is the path of the key=value Kafka client config file.
	ConfigFile string

	// NumMessages is the number of records published by the produce command.
	NumMessages int

	// FlushTimeout bounds each flush, and the final wait for delivery reports.
	FlushTimeout time.Duration

	// AdminTimeout bounds create/delete topic requests. Zero means no bound
	// other than the client library's own request timeout.
	AdminTimeout time.Duration

	LogLevel string
}

func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The logger's own LOG_LEVEL is honoured if CCLOUD_LOG_LEVEL is not set
	if err := v.BindEnv(SettingLogLevel, envPrefix+"_LOG_LEVEL", envLoggerLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	v.SetDefault(SettingConfigFile, DefaultConfigFile)
	v.SetDefault(SettingNumMessages, cci.DefaultNumMessages)
	v.SetDefault(SettingFlushTimeout, cci.DefaultFlushTimeout)
	v.SetDefault(SettingAdminTimeout, time.Duration(0))
	v.SetDefault(SettingLogLevel, DefaultLogLevel)

	s := &Settings{
		ConfigFile:   v.GetString(SettingConfigFile),
		NumMessages:  v.GetInt(SettingNumMessages),
		FlushTimeout: v.GetDuration(SettingFlushTimeout),
		AdminTimeout: v.GetDuration(SettingAdminTimeout),
		LogLevel:     v.GetString(SettingLogLevel),
	}
	return s, s.Validate()
}

func (s *Settings) Validate() error {
	switch {
	case s.ConfigFile == "":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidSettings, SettingConfigFile)
	case s.NumMessages <= 0:
		return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidSettings, SettingNumMessages)
	case s.FlushTimeout <= 0:
		return fmt.Errorf("%w: %s must be a positive duration, e.g. 10s", ErrInvalidSettings, SettingFlushTimeout)
	case s.AdminTimeout < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, SettingAdminTimeout)
	}
	if _, err := parseLogLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, SettingLogLevel, err)
	}
	return nil
}

func (s *Settings) String() string {
	return fmt.Sprintf("configFile: %s, numMessages: %d, flushTimeout: %v, adminTimeout: %v, logLevel: %s",
		s.ConfigFile, s.NumMessages, s.FlushTimeout, s.AdminTimeout, s.LogLevel)
}

// parseLogLevel maps a case-insensitive level name to a notify level.
func parseLogLevel(s string) (int, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return entity.NotifyLevelInfo, nil
	case "WARNING":
		name = entity.NotifyLevelStrWarn
	}
	level := entity.NotifyLevel(name)
	if level == entity.NotifyLevelInvalid {
		return entity.NotifyLevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
