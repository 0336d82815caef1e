// Package config loads server settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every server setting.
type Config struct {
	Port            string
	DBPath          string
	AdminUser       string
	AdminPassword   string
	SecureCookie    bool
	JWTSecret       string
	JWTTTL          time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DefaultCurrency string
	Location        *time.Location
	UploadURL       string
	UploadPreset    string
	LogLevel        slog.Level
	TxMaxAttempts   int
	CORSOrigins     []string
}

var keys = map[string]string{
	"port":             "PORT",
	"db_path":          "DB_PATH",
	"admin_user":       "ADMIN_USER",
	"admin_password":   "ADMIN_PASSWORD",
	"secure_cookie":    "SECURE_COOKIE",
	"jwt.secret":       "JWT_SECRET",
	"jwt.ttl":          "JWT_TTL",
	"redis.addr":       "REDIS_ADDR",
	"redis.password":   "REDIS_PASSWORD",
	"redis.db":         "REDIS_DB",
	"default_currency": "DEFAULT_CURRENCY",
	"timezone":         "TIMEZONE",
	"upload.url":       "UPLOAD_URL",
	"upload.preset":    "UPLOAD_PRESET",
	"log_level":        "LOG_LEVEL",
	"tx_max_attempts":  "TX_MAX_ATTEMPTS",
	"cors.origins":     "CORS_ORIGINS",
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "wallet.db")
	v.SetDefault("secure_cookie", false)
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("redis.db", 0)
	v.SetDefault("default_currency", "INR")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("log_level", "info")
	v.SetDefault("tx_max_attempts", 3)
	v.SetDefault("cors.origins", "http://localhost:5173")
}

// Load reads envFile when it exists, then lets environment variables
// override it. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	defaults(v)
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", envFile, err)
			}
			// The env format uses the variable names as keys.
			for key, env := range keys {
				if v.InConfig(strings.ToLower(env)) && os.Getenv(env) == "" {
					v.Set(key, v.Get(strings.ToLower(env)))
				}
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("port"),
		DBPath:          v.GetString("db_path"),
		AdminUser:       v.GetString("admin_user"),
		AdminPassword:   v.GetString("admin_password"),
		SecureCookie:    v.GetBool("secure_cookie"),
		JWTSecret:       v.GetString("jwt.secret"),
		JWTTTL:          v.GetDuration("jwt.ttl"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPassword:   v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		DefaultCurrency: strings.ToUpper(v.GetString("default_currency")),
		UploadURL:       v.GetString("upload.url"),
		UploadPreset:    v.GetString("upload.preset"),
		TxMaxAttempts:   v.GetInt("tx_max_attempts"),
		CORSOrigins:     splitList(v.GetString("cors.origins")),
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY %q is not a 3-letter code", c.DefaultCurrency))
	}
	if c.TxMaxAttempts < 1 {
		errs = append(errs, errors.New("TX_MAX_ATTEMPTS must be at least 1"))
	}
	for _, origin := range c.CORSOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("CORS_ORIGINS entry %q must start with http:// or https://", origin))
			continue
		}
		// Credentials are allowed, so an origin may not match every host.
		if host := origin[strings.Index(origin, "://")+3:]; host == "*" || host == "" {
			errs = append(errs, fmt.Errorf("CORS_ORIGINS entry %q matches every host", origin))
		}
	}
	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USER and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// splitList splits a comma-separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
