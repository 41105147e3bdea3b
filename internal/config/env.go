package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"vetbiz/internal/warehouse"
	"vetbiz/pkg/errors"
)

// Getter reads string settings by key; *viper.Viper satisfies it
type Getter interface {
	GetString(key string) string
}

// Source describes the environment variables of one database source
type Source struct {
	Name          string
	Prefix        string
	HostKey       string
	DefaultDriver warehouse.Driver
}

var (
	// Primary is the sales warehouse
	Primary = Source{Name: "warehouse", Prefix: "DB_", HostKey: "DB_HOST", DefaultDriver: warehouse.DriverMySQL}
	// Secondary is the accounting journals source
	Secondary = Source{Name: "etani", Prefix: "ETANI_DB_", HostKey: "ETANI_DB_SERVER", DefaultDriver: warehouse.DriverSQLServer}
)

// Key returns the environment variable name for a setting of the source
func (s Source) Key(name string) string {
	if name == "HOST" {
		return s.HostKey
	}
	return s.Prefix + name
}

// RequiredKeys lists the variables that must be present
func (s Source) RequiredKeys() []string {
	return []string{s.Key("USER"), s.Key("PASSWORD"), s.Key("HOST"), s.Key("NAME")}
}

// WarehouseFromEnv resolves connection settings for source. A missing
// password falls back to secrets when it is non-nil. Every required
// variable is checked before any connection is attempted.
func WarehouseFromEnv(env Getter, source Source, secrets SecretStore) (warehouse.Config, error) {
	get := func(name string) string {
		return strings.TrimSpace(env.GetString(source.Key(name)))
	}

	config := warehouse.Config{
		Host:      get("HOST"),
		User:      get("USER"),
		Password:  env.GetString(source.Key("PASSWORD")),
		Database:  get("NAME"),
		Schema:    get("SCHEMA"),
		Warehouse: get("WAREHOUSE"),
		Role:      get("ROLE"),
	}

	driver := source.DefaultDriver
	if raw := get("DRIVER"); raw != "" {
		d, err := warehouse.ParseDriver(raw)
		if err != nil {
			return config, err
		}
		driver = d
	}
	config.Driver = driver

	if raw := get("PORT"); raw != "" {
		port, err := cast.ToIntE(raw)
		if err != nil || port <= 0 || port > 65535 {
			return config, errors.InvalidConfigError(source.Key("PORT"), raw, "must be a port number")
		}
		config.Port = port
	} else {
		config.Port = warehouse.DefaultPort(driver)
	}

	if raw := get("TIMEOUT"); raw != "" {
		timeout, err := cast.ToDurationE(raw)
		if err != nil || timeout < 0 {
			return config, errors.InvalidConfigError(source.Key("TIMEOUT"), raw, "must be a duration such as 30s")
		}
		config.Timeout = timeout
	}

	if config.Password == "" && config.User != "" && secrets != nil {
		secret, err := secrets.Password(keyringAccount(source, config.User))
		if err != nil {
			return config, errors.Wrap(err, errors.ErrCodeConfigMissing, "Failed to read password from keyring").
				WithContext("variable", source.Key("PASSWORD"))
		}
		config.Password = secret
	}

	values := map[string]string{
		source.Key("USER"):     config.User,
		source.Key("PASSWORD"): config.Password,
		source.Key("HOST"):     config.Host,
		source.Key("NAME"):     config.Database,
	}
	for _, key := range source.RequiredKeys() {
		if values[key] == "" {
			return config, errors.ConfigError("Missing required environment variable "+key, key)
		}
	}
	return config, nil
}

// defaultTimeout is applied when a source sets none
const defaultTimeout = 30 * time.Second

// WithDefaultTimeout returns config with a connect timeout set
func WithDefaultTimeout(config warehouse.Config) warehouse.Config {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return config
}
