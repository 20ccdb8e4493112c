package config

import (
	"os"
	"strings"
)

// DefaultEnterprises are the business units orders may be booked against.
// Overridable via VALID_ENTERPRISES for non-production databases.
var DefaultEnterprises = []string{"VINESA", "PLUSBRAND", "SERVMULTIMARC", "VINLITORAL"}

// Config carries everything the gateway needs at startup. It replaces the
// process-wide globals of earlier revisions: constructors receive it
// explicitly instead of reading the environment themselves.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	Enterprises    []string

	APITitle   string
	APIVersion string
}

// Load reads the configuration from the environment. Call godotenv.Load
// first if a .env file should be honored.
func Load() Config {
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     envOr("SERVER_PORT", "8000"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		Enterprises:    DefaultEnterprises,
		APITitle:       "Zoho-SAP Integration API",
		APIVersion:     "1.0.0",
	}

	if raw := os.Getenv("VALID_ENTERPRISES"); raw != "" {
		var enterprises []string
		for _, part := range strings.Split(raw, ",") {
			if name := strings.ToUpper(strings.TrimSpace(part)); name != "" {
				enterprises = append(enterprises, name)
			}
		}
		if len(enterprises) > 0 {
			cfg.Enterprises = enterprises
		}
	}

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
