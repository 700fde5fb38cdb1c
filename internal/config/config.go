package config

import (
	"os"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Email    EmailConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    string
}

type EmailConfig struct {
	APIKey string
	APIURL string
	From   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port: getenv("PORT", "8080"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTTTL:    getenv("JWT_TTL", "720h"),
		},
		Email: EmailConfig{
			APIKey: os.Getenv("EMAIL_API_KEY"),
			APIURL: getenv("EMAIL_API_URL", "https://api.sendgrid.com/v3/mail/send"),
			From:   getenv("EMAIL_FROM", "no-reply@taskapp.dev"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
