package config // package config loads application configuration from environment variables

import "os" // os provides access to environment variables

// Store selects the persistence backend.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the core runtime configuration values. Each field
// corresponds to an environment variable. The database fields are only
// required when Store is mysql.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	Store     string // "mysql" (default) or "memory"
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	Migrate   bool   // apply the embedded schema at startup
	JWTSecret string // secret used to verify JWTs
	LogLevel  string // debug, info, warn or error
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:       must("APP_ENV"),                 // environment (dev/test/prod)
		Port:      must("APP_PORT"),                // port to bind the HTTP server
		Store:     envStr("APP_STORE", StoreMySQL), // persistence backend
		JWTSecret: must("JWT_SECRET"),              // secret used for verifying JWTs
		LogLevel:  envStr("LOG_LEVEL", "info"),     // slog level
		Migrate:   envBool("DB_MIGRATE", false),    // create tables on boot
		DBPass:    os.Getenv("DB_PASS"),            // database password (empty allowed)
	}
	if cfg.Store == StoreMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}
