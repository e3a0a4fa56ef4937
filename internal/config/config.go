package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The seat hold TTL and the payment amount
// tolerance are deliberately NOT configurable: they are protocol constants
// (600 seconds, 1000 smallest-currency-units) defined next to the code that
// enforces them.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name
	ChecksumKey string // payment gateway checksum key; signature verification hard-fails without it
	JWTSecret   string // secret for validating access tokens issued by the account service (optional)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. The checksum key is
// required: starting without it would make every webhook unverifiable, and
// silently accepting unverified payments is the one failure mode this
// subsystem must never have.
func Load() Config {
	return Config{
		Env:         must("APP_ENV"),               // environment (dev/test/prod)
		Port:        must("APP_PORT"),              // port to bind the HTTP server
		DBUser:      must("DB_USER"),               // database user
		DBPass:      os.Getenv("DB_PASS"),          // database password (empty allowed)
		DBHost:      must("DB_HOST"),               // database host
		DBPort:      must("DB_PORT"),               // database port
		DBName:      must("DB_NAME"),               // database name
		ChecksumKey: must("PAYOS_CHECKSUM_KEY"),    // gateway signature secret
		JWTSecret:   os.Getenv("JWT_SECRET"),       // optional; guests connect without identity
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
