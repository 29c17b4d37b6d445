// Package config loads the service configuration. Values are layered in the
// following order, each source overriding the previous one: built-in defaults,
// a JSON file (CONFIG env or -c flag), environment variables, command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrDatabaseSettingsMissing is returned when neither DATABASE_DSN nor the full set of
// DATABASE_* parts is configured and in-memory storage was not requested.
var ErrDatabaseSettingsMissing = errors.New(
	"database settings are missing: set DATABASE_DSN or DATABASE_HOST, DATABASE_PORT, " +
		"DATABASE_USERNAME, DATABASE_PASSWORD and DATABASE_NAME",
)

// Config holds every setting the service reads at start-up.
type Config struct {
	Port     string `env:"PORT" json:"port" validate:"numeric"`
	BaseURL  string `env:"BASE_URL" json:"base_url" validate:"url"`
	LogLevel string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	DatabaseHost        string        `env:"DATABASE_HOST" json:"database_host"`
	DatabasePort        string        `env:"DATABASE_PORT" json:"database_port" validate:"omitempty,numeric"`
	DatabaseUsername    string        `env:"DATABASE_USERNAME" json:"database_username"`
	DatabasePassword    string        `env:"DATABASE_PASSWORD" json:"database_password"`
	DatabaseName        string        `env:"DATABASE_NAME" json:"database_name"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-"`
	InMemoryStorage     bool          `env:"IN_MEMORY_STORAGE" json:"in_memory_storage"`

	JWTSecret string        `env:"JWT_SECRET" json:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" json:"-" validate:"gt=0"`

	Timezone      string `env:"TIMEZONE" json:"timezone" validate:"tzname"`
	TrustedSubnet string `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	ConfigFile string `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	Port:                "3000",
	BaseURL:             "http://localhost",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	TokenTTL:            10 * time.Minute,
	Timezone:            "Local",
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flags, which is what tests usually want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var fromFlags Config
	setFlags := map[string]bool{}
	if !options.disableFlagsParsing {
		var err error
		setFlags, err = parseFlags(&fromFlags)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	configFile := fromEnv.ConfigFile
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		fromJSON, err := loadJSON(configFile)
		if err != nil {
			return nil, err
		}
		override(values, fromJSON)
	}

	override(values, &fromEnv)
	overrideFromFlags(values, &fromFlags, setFlags)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// RunAddr is the address the HTTP server listens on.
func (c *Config) RunAddr() string {
	return ":" + c.Port
}

// ShortURLBase is the prefix of every redirect URL handed to clients. PORT is
// appended to BASE_URL unless BASE_URL already names a port.
func (c *Config) ShortURLBase() string {
	base := strings.TrimRight(c.BaseURL, "/")
	parsed, err := url.Parse(base)
	if err == nil && parsed.Port() != "" {
		return base
	}
	if c.Port == "" {
		return base
	}

	return base + ":" + c.Port
}

// DSN returns DATABASE_DSN when set, otherwise a postgres URL assembled from the
// DATABASE_* parts.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUsername, c.DatabasePassword),
		Host:     net.JoinHostPort(c.DatabaseHost, c.DatabasePort),
		Path:     "/" + c.DatabaseName,
		RawQuery: "sslmode=disable",
	}

	return dsn.String()
}

// Location is the time zone expiry dates are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) hasDatabaseSettings() bool {
	if c.DatabaseDSN != "" {
		return true
	}

	return c.DatabaseHost != "" &&
		c.DatabasePort != "" &&
		c.DatabaseUsername != "" &&
		c.DatabasePassword != "" &&
		c.DatabaseName != ""
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":  true,
		"info":   true,
		"warn":   true,
		"error":  true,
		"dpanic": true,
		"panic":  true,
		"fatal":  true,
	}

	return allowedLogLevels[value]
}

func validateTimezoneName(fieldLevel validator.FieldLevel) bool {
	_, err := time.LoadLocation(fieldLevel.Field().String())

	return err == nil
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("tzname", validateTimezoneName)
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	if !c.InMemoryStorage && !c.hasDatabaseSettings() {
		return ErrDatabaseSettingsMissing
	}

	return nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func loadJSON(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	result := &Config{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return result, nil
}

func parseFlags(values *Config) (map[string]bool, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.StringVar(&values.Port, "p", "", "port to listen on")
	flags.StringVar(&values.BaseURL, "b", "", "base address of the resulting redirect URLs")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DatabaseDSN, "d", "", "a string with the database connection details")
	flags.StringVar(&values.TrustedSubnet, "t", "", "CIDR of the subnet allowed to read internal stats")
	flags.StringVar(&values.ConfigFile, "c", "", "path to a JSON configuration file")
	flags.BoolVar(&values.InMemoryStorage, "m", false, "keep everything in memory instead of PostgreSQL")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	return set, nil
}

func override(values, with *Config) {
	overrideString(&values.Port, with.Port)
	overrideString(&values.BaseURL, with.BaseURL)
	overrideString(&values.LogLevel, with.LogLevel)
	overrideString(&values.DatabaseHost, with.DatabaseHost)
	overrideString(&values.DatabasePort, with.DatabasePort)
	overrideString(&values.DatabaseUsername, with.DatabaseUsername)
	overrideString(&values.DatabasePassword, with.DatabasePassword)
	overrideString(&values.DatabaseName, with.DatabaseName)
	overrideString(&values.DatabaseDSN, with.DatabaseDSN)
	overrideString(&values.JWTSecret, with.JWTSecret)
	overrideString(&values.Timezone, with.Timezone)
	overrideString(&values.TrustedSubnet, with.TrustedSubnet)

	if with.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = with.DBConnectionTimeout
	}

	if with.TokenTTL != 0 {
		values.TokenTTL = with.TokenTTL
	}

	if with.InMemoryStorage {
		values.InMemoryStorage = true
	}
}

func overrideFromFlags(values, fromFlags *Config, set map[string]bool) {
	if set["p"] {
		values.Port = fromFlags.Port
	}

	if set["b"] {
		values.BaseURL = fromFlags.BaseURL
	}

	if set["l"] {
		values.LogLevel = fromFlags.LogLevel
	}

	if set["d"] {
		values.DatabaseDSN = fromFlags.DatabaseDSN
	}

	if set["t"] {
		values.TrustedSubnet = fromFlags.TrustedSubnet
	}

	if set["m"] {
		values.InMemoryStorage = fromFlags.InMemoryStorage
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
