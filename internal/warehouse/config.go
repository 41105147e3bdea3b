package warehouse

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/snowflakedb/gosnowflake"

	"vetbiz/pkg/errors"
)

// Driver names a supported database/sql driver
type Driver string

const (
	DriverMySQL     Driver = "mysql"
	DriverPostgres  Driver = "postgres"
	DriverSnowflake Driver = "snowflake"
	DriverSQLServer Driver = "sqlserver"
)

// Drivers lists every supported driver
var Drivers = []Driver{DriverMySQL, DriverPostgres, DriverSnowflake, DriverSQLServer}

// ParseDriver validates a driver name
func ParseDriver(name string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Drivers {
		if d == known {
			return d, nil
		}
	}
	return "", errors.InvalidConfigError("driver", name, fmt.Sprintf("must be one of %v", Drivers))
}

// DefaultPort returns the conventional port for the driver's wire protocol
func DefaultPort(d Driver) int {
	switch d {
	case DriverMySQL:
		return 3306
	case DriverPostgres:
		return 5432
	case DriverSQLServer:
		return 1433
	case DriverSnowflake:
		return 443
	}
	return 0
}

// Config holds warehouse connection configuration
type Config struct {
	Driver   Driver
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Snowflake only. Host is used as the account identifier.
	Schema    string
	Warehouse string
	Role      string

	Timeout time.Duration
}

// ValidateConfig validates the connection configuration
func ValidateConfig(config Config) error {
	if config.Driver == "" {
		return errors.ConfigError("Warehouse driver is required", "driver")
	}
	if _, err := ParseDriver(string(config.Driver)); err != nil {
		return err
	}
	if config.Host == "" {
		return errors.ConfigError("Warehouse host is required", "host")
	}
	if config.User == "" {
		return errors.ConfigError("Warehouse user is required", "user")
	}
	if config.Password == "" {
		return errors.ConfigError("Warehouse password is required", "password")
	}
	if config.Database == "" {
		return errors.ConfigError("Warehouse database name is required", "database")
	}
	if config.Port < 0 || config.Port > 65535 {
		return errors.InvalidConfigError("port", config.Port, "must be between 0 and 65535")
	}
	return nil
}

func (c Config) port() int {
	if c.Port == 0 {
		return DefaultPort(c.Driver)
	}
	return c.Port
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.port()))
}

// DSN builds the driver-specific connection string
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = c.address()
		mc.DBName = c.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		if c.Timeout > 0 {
			mc.Timeout = c.Timeout
		}
		return mc.FormatDSN(), nil

	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   c.address(),
			Path:   "/" + c.Database,
		}
		q := u.Query()
		q.Set("sslmode", "prefer")
		if c.Timeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(c.Timeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverSQLServer:
		u := url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(c.User, c.Password),
			Host:   c.address(),
		}
		q := u.Query()
		q.Set("database", c.Database)
		if c.Timeout > 0 {
			q.Set("dial timeout", strconv.Itoa(int(c.Timeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverSnowflake:
		sc := &gosnowflake.Config{
			Account:   c.Host,
			User:      c.User,
			Password:  c.Password,
			Database:  c.Database,
			Schema:    c.Schema,
			Warehouse: c.Warehouse,
			Role:      c.Role,
		}
		if c.Port != 0 {
			sc.Port = c.Port
		}
		if c.Timeout > 0 {
			sc.LoginTimeout = c.Timeout
		}
		return gosnowflake.DSN(sc)
	}

	return "", errors.InvalidConfigError("driver", string(c.Driver), "unsupported driver")
}

// Redacted returns a printable description without the password
func (c Config) Redacted() string {
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.User, c.address(), c.Database)
}
