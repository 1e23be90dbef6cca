package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Session TTLs come in two flavours: the
// short one applies to plain logins and the long one to logins made
// with the "remember me" flag set.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	SessionSecret   string // secret used to sign session cookies
	SessionTTLMin   int    // session lifetime in minutes for plain logins
	RememberTTLDays int    // session lifetime in days when "remember" is set
	BcryptCost      int    // bcrypt cost for password hashing
	UploadDir       string // directory where resized pictures are stored
	BrokerURL       string // AMQP URL for the activity feed pipeline (optional)
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		SessionSecret:   must("SESSION_SECRET"),
		SessionTTLMin:   mustInt("SESSION_TTL_MIN"),
		RememberTTLDays: mustInt("REMEMBER_TTL_DAYS"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		UploadDir:       getenv("UPLOAD_DIR", "static/uploads"),
		BrokerURL:       os.Getenv("RABBITMQ_URL"), // empty disables the feed pipeline
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// getenv returns the value of key or def when the variable is unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
