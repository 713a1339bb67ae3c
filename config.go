package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	SecureCookies bool

	DBDriver       string // sqlite, mysql, postgres
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	AdminUser string
	AdminPass string

	Categories []string
	SiteIntro  string

	StorageBackend string // local, s3
	MediaDir       string
	AWSBucket      string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	MaxUploadMB    int

	LogLevel string
}

var defaultCategories = []string{"Landscape", "Portrait", "Animals", "Food", "Street"}

func loadConfig() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		SecureCookies: getEnvAsBool("SECURE_COOKIES", false),

		DBDriver:       getEnv("DB_DRIVER", "sqlite"),
		DBDSN:          getEnv("DB_DSN", "photoshare.db"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),

		AdminUser: getEnv("ADMIN_USER", "admin"),
		AdminPass: os.Getenv("ADMIN_PASS"),

		Categories: splitList(os.Getenv("CATEGORIES")),
		SiteIntro:  getEnv("SITE_INTRO", "Share your favourite shots with everyone."),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		MediaDir:       getEnv("MEDIA_DIR", "media"),
		AWSBucket:      os.Getenv("AWS_BUCKET_NAME"),
		AWSRegion:      os.Getenv("AWS_REGION"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 10),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultCategories
	}

	return cfg
}

func (c *Config) maxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
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
