package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	Env            string   `mapstructure:"app_env"`
	HTTPPort       string   `mapstructure:"http_port"`
	StockFile      string   `mapstructure:"stock_file"`
	SalesFile      string   `mapstructure:"sales_file"`
	ReportDSN      string   `mapstructure:"report_db_dsn"`
	ExpiryWarnDays int      `mapstructure:"expiry_warn_days"`
	IndexCapacity  int      `mapstructure:"index_capacity"`
	SeedCatalog    string   `mapstructure:"seed_catalog"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`
}

var defaults = map[string]any{
	"app_env":          "production",
	"http_port":        "8080",
	"stock_file":       "stock.csv",
	"sales_file":       "sales.csv",
	"report_db_dsn":    "file:sales_report.db",
	"expiry_warn_days": 90,
	"index_capacity":   101,
	"seed_catalog":     "",
	"cors_origins":     "*",
	"metrics_enabled":  true,
}

// Load reads configuration from an optional .env file, the environment and
// an optional CONFIG_FILE, in increasing precedence for the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.CORSOrigins = splitList(v.GetString("cors_origins"))

	// Validate that port is numeric.
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", c.HTTPPort)
		c.HTTPPort = "8080"
	}
	if c.ExpiryWarnDays <= 0 {
		c.ExpiryWarnDays = 90
	}
	if c.IndexCapacity <= 0 {
		c.IndexCapacity = 101
	}
	return c, nil
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
