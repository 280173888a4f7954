package clickhouse

import "time"

// Config describes one ClickHouse endpoint and its pool.
type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	UseHTTP         bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	// WriteTimeout bounds each InsertRows call, not the connection.
	WriteTimeout time.Duration
	MaxExecTime  time.Duration
	AsyncInsert  bool
	WaitForAsync bool
}

func defaultConfig() Config {
	return Config{
		Port:            9000,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// ClientOption configures Client.
type ClientOption func(*Config)

// WithAddr sets host and the native (9000) or HTTP (8123) port.
func WithAddr(host string, port int) ClientOption {
	return func(c *Config) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(database string) ClientOption {
	return func(c *Config) { c.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *Config) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

func WithTimeouts(dial, read, write time.Duration) ClientOption {
	return func(c *Config) {
		c.DialTimeout = dial
		c.ReadTimeout = read
		c.WriteTimeout = write
	}
}

func WithHTTP(useHTTP bool) ClientOption {
	return func(c *Config) { c.UseHTTP = useHTTP }
}

// WithAsyncInsert lets the server buffer small inserts; with wait=false the
// insert returns before the data is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *Config) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}

func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *Config) { c.MaxExecTime = d }
}
