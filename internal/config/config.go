package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	SeedPath      string
	MatsimVersion int
	HouseholdKey  string

	RedisAddr     string
	RepairWorkers int
	// repair every plan after seeding an empty database
	RepairOnSeed bool
	CORSOrigins  []string
}

// Load reads .env (when present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	return &Config{
		Port:          Get("PORT", "8080"),
		DBDriver:      Get("DB_DRIVER", "sqlite"),
		DBPath:        Get("DB_PATH", "data/app.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SeedPath:      Get("SEED_PATH", "data/seeds/plans.xml.gz"),
		MatsimVersion: GetInt("MATSIM_VERSION", 12),
		HouseholdKey:  Get("HOUSEHOLD_KEY", "hid"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RepairWorkers: GetInt("REPAIR_WORKERS", 4),
		RepairOnSeed:  GetBool("REPAIR_ON_SEED", false),
		CORSOrigins:   GetList("CORS_ORIGINS", []string{"*"}),
	}
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "pgx" {
		return c.DatabaseURL
	}
	return c.DBPath
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid integer key=%s value=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func GetBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: invalid boolean key=%s value=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(key string, fallback []string) []string {
	v := os.Getenv(key)
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
