package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The struct is built once at startup and
// passed explicitly to the components that need it (token codec, auth
// provider, issuance service); nothing reads the environment afterwards.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	BaseURL          string // externally visible base URL, used in redirects and QR links
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	SessionSecret    string // secret used to sign the login session cookie
	TokenSecret      string // secret used to sign identifier (VATIN) tokens
	OIDCIssuerURL    string // identity provider issuer base URL
	OIDCClientID     string // identity provider client id
	OIDCClientSecret string // identity provider client secret
	OIDCAudience     string // audience for the server-to-server API credential
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:              getenv("APP_ENV", "dev"),
		Port:             getenv("APP_PORT", "3000"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		SessionSecret:    must("SESSION_SECRET"),
		TokenSecret:      must("TOKEN_SECRET"),
		OIDCIssuerURL:    must("OIDC_ISSUER_URL"),
		OIDCClientID:     must("OIDC_CLIENT_ID"),
		OIDCClientSecret: must("OIDC_CLIENT_SECRET"),
		OIDCAudience:     must("OIDC_AUDIENCE"),
	}
	cfg.BaseURL = getenv("BASE_URL", "http://localhost:"+cfg.Port)
	return cfg
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
