package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminKeySalt string
	RedisURL     string
	RateLimit    int
	RateWindow   time.Duration
	CORSOrigins  []string
}

type PopulateConfig struct {
	DatabaseURL   string
	DatabaseType  string
	PlacesAPIKey  string
	Locations     []string
	LocationDelay time.Duration
	Limit         int
	Radius        int
}

// stringList collects a repeatable string flag
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, "; ") }

func (l *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*l = append(*l, v)
	return nil
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile, corsOrigins string

	fs := flag.NewFlagSet("ranked-eats", flag.ContinueOnError)

	fs.StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for rate limiting (empty disables)")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Votes allowed per client per window")
	fs.DurationVar(&cfg.RateWindow, "rate-window", 0, "Rate limit window")
	fs.StringVar(&corsOrigins, "cors-origins", "", "Comma separated allowed origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if err := parseDatabase(&cfg.DatabaseURL, &cfg.DatabaseType); err != nil {
		return Config{}, err
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if cfg.RateLimit == 0 {
		if s := os.Getenv("RATE_LIMIT"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return Config{}, errors.New("invalid RATE_LIMIT env variable")
			}
			cfg.RateLimit = n
		} else {
			cfg.RateLimit = 5
		}
	}
	if cfg.RateWindow == 0 {
		if s := os.Getenv("RATE_WINDOW"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return Config{}, errors.New("invalid RATE_WINDOW env variable")
			}
			cfg.RateWindow = d
		} else {
			cfg.RateWindow = time.Minute
		}
	}

	if corsOrigins == "" {
		corsOrigins = os.Getenv("CORS_ORIGINS")
	}
	cfg.CORSOrigins = splitList(corsOrigins)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	return cfg, nil
}

// ParsePopulateFlags reads the configuration for the restaurant ingestion tool
func ParsePopulateFlags(args []string) (PopulateConfig, error) {
	var cfg PopulateConfig
	var envFile string

	fs := flag.NewFlagSet("populate", flag.ContinueOnError)
	fs.StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.PlacesAPIKey, "api-key", "", "Google Places API key (prefer env)")
	fs.Var((*stringList)(&cfg.Locations), "location", "Area to search, e.g. \"San Francisco, CA\" (repeatable)")
	fs.DurationVar(&cfg.LocationDelay, "location-delay", time.Second, "Pause between locations")
	fs.IntVar(&cfg.Limit, "limit", 20, "Maximum restaurants to import")
	fs.IntVar(&cfg.Radius, "radius", 5000, "Search radius in meters")

	if err := fs.Parse(args); err != nil {
		return PopulateConfig{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return PopulateConfig{}, err
	}

	if err := parseDatabase(&cfg.DatabaseURL, &cfg.DatabaseType); err != nil {
		return PopulateConfig{}, err
	}

	if cfg.PlacesAPIKey == "" {
		cfg.PlacesAPIKey = os.Getenv("GOOGLE_PLACES_API_KEY")
	}
	if cfg.PlacesAPIKey == "" {
		return PopulateConfig{}, errors.New("GOOGLE_PLACES_API_KEY required")
	}

	if len(cfg.Locations) == 0 {
		return PopulateConfig{}, errors.New("location required (use -location)")
	}
	if cfg.LocationDelay < 0 {
		return PopulateConfig{}, errors.New("location-delay must not be negative")
	}
	if cfg.Limit < 1 {
		return PopulateConfig{}, errors.New("limit must be positive")
	}
	if cfg.Radius < 1 || cfg.Radius > 50000 {
		return PopulateConfig{}, errors.New("radius must be between 1 and 50000 meters")
	}

	return cfg, nil
}

// loadEnvFile fills unset environment variables from a .env file.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func parseDatabase(url, dbType *string) error {
	if *url == "" {
		*url = os.Getenv("DATABASE_URL")
	}
	if *url == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if *dbType == "" {
		*dbType = os.Getenv("DATABASE_TYPE")
		if *dbType == "" {
			*dbType = "sqlite"
		}
	}
	if *dbType != "sqlite" && *dbType != "postgres" {
		return fmt.Errorf("unsupported database type %q", *dbType)
	}

	return nil
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
