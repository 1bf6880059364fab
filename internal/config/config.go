// Package config reads server settings from command line flags, the
// environment and an optional .env file. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort       = 8000
	DefaultSQLitePath = "polls.db"
)

type Config struct {
	Port         int
	DatabaseType string
	DatabaseURL  string
	// Migrate applies pending migrations before serving.
	Migrate bool

	JWTSecret      string
	GoogleClientID string
	AdminEmails    []string
	CookieSecure   bool
	Location       *time.Location
}

// Load reads .env when present and then parses args.
func Load(args []string) (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	return Parse(args, os.Getenv)
}

// LoadEnv copies a .env file in the working directory into the process
// environment. A missing file is not an error.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Parse builds a Config from args with getenv as fallback.
func Parse(args []string, getenv func(string) string) (Config, error) {
	var (
		cfg         Config
		adminEmails string
		timeZone    string
	)

	fs := flag.NewFlagSet("polls", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL, or a file path for sqlite")
	fs.BoolVar(&cfg.Migrate, "migrate", false, "Apply pending migrations on start")
	fs.StringVar(&adminEmails, "admin-emails", "", "Comma separated emails allowed on the admin site")
	fs.StringVar(&timeZone, "tz", "", "Time zone used to display and filter dates")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil || port <= 0 {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	dbType, dbURL, err := ResolveDatabase(cfg.DatabaseType, cfg.DatabaseURL, getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseType, cfg.DatabaseURL = dbType, dbURL

	cfg.JWTSecret = getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	cfg.GoogleClientID = getenv("GOOGLE_CLIENT_ID")

	if adminEmails == "" {
		adminEmails = getenv("ADMIN_EMAILS")
	}
	cfg.AdminEmails = splitList(adminEmails)

	if v := getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("invalid COOKIE_SECURE env variable")
		}
		cfg.CookieSecure = secure
	}

	if timeZone == "" {
		timeZone = getenv("TIME_ZONE")
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// ResolveDatabase fills in the database type and URL from the environment
// when the flags left them empty.
func ResolveDatabase(dbType, dbURL string, getenv func(string) string) (string, string, error) {
	if dbType == "" {
		dbType = getenv("DATABASE_TYPE")
		if dbType == "" {
			dbType = "sqlite"
		}
	}

	if dbURL == "" {
		dbURL = getenv("DATABASE_URL")
	}
	switch dbType {
	case "sqlite":
		if dbURL == "" {
			dbURL = DefaultSQLitePath
		}
	case "postgres":
		if dbURL == "" {
			dbURL = postgresURL(getenv)
		}
		if dbURL == "" {
			return "", "", errors.New("database URL required (use -d, DATABASE_URL or POSTGRES_* env)")
		}
	default:
		return "", "", fmt.Errorf("unsupported database type %q", dbType)
	}

	return dbType, dbURL, nil
}

// postgresURL assembles a connection string from the POSTGRES_* variables
// used by the docker setup. It returns "" when POSTGRES_HOST is unset.
func postgresURL(getenv func(string) string) string {
	host := getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenv("POSTGRES_USER"), getenv("POSTGRES_PASSWORD")),
		Host:     host + ":" + port,
		Path:     "/" + getenv("POSTGRES_DB"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
