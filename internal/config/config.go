package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables

	"github.com/joho/godotenv" // optional .env bootstrap for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  MySQL connection parts are only required when
// DB_DRIVER is "mysql"; the embedded SQLite store needs just a file path.
type Config struct {
	Env                string // application environment (e.g. "dev", "prod")
	Port               string // HTTP port to listen on
	DBDriver           string // "mysql" or "sqlite"
	DBUser             string // database username
	DBPass             string // database password (optional)
	DBHost             string // database host address
	DBPort             string // database port number
	DBName             string // database name
	LockWaitTimeoutSec int    // bound on row-lock waits before a transient failure
	SQLitePath         string // embedded database file
	AutoMigrate        bool   // apply the embedded schema on startup
	JWTSecret          string // secret used to verify staff JWTs
	Venue              VenueConfig
	Notify             NotifyConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is read first when present;
// real environment variables always win.  Required variables are enforced
// by must() and missing values cause the program to exit with a fatal log
// message.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env")
	}
	cfg := Config{
		Env:                must("APP_ENV"),                       // environment (dev/test/prod)
		Port:               must("APP_PORT"),                      // port to bind the HTTP server
		DBDriver:           envStr("DB_DRIVER", "mysql"),          // store backend
		LockWaitTimeoutSec: envInt("DB_LOCK_WAIT_TIMEOUT_SEC", 5), // innodb_lock_wait_timeout
		SQLitePath:         envStr("SQLITE_PATH", "seating.db"),   // embedded database file
		JWTSecret:          must("JWT_SECRET"),                    // secret used for verifying JWTs
	}
	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", false)
	case "sqlite":
		cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", true)
	default:
		log.Fatalf("invalid DB_DRIVER: %q (want mysql or sqlite)", cfg.DBDriver)
	}
	if cfg.LockWaitTimeoutSec < 1 {
		cfg.LockWaitTimeoutSec = 1
	}
	venue, err := LoadVenueConfig()
	if err != nil {
		log.Fatalf("invalid venue config: %v", err)
	}
	cfg.Venue = venue
	cfg.Notify = LoadNotifyConfig()
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
