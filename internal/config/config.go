package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Supported post store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBadger   = "badger"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	PingTimeoutSec     int
}

// StorageConfig holds settings for the S3-compatible object store that receives post images.
type StorageConfig struct {
	Endpoint           string
	Region             string
	Bucket             string
	AccessKey          string
	SecretKey          string
	UseSSL             bool
	PublicBaseURL      string
	PublicRead         bool
	CreateBucket       bool
	ConnectTimeoutSec  int
	TransferTimeoutSec int
}

// HTTPConfig holds request limits, upload buffering and CORS settings.
type HTTPConfig struct {
	MaxBodyBytes     int
	MaxUploadBytes   int64
	UploadBufferDir  string
	StaticDir        string
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port        string
	Timezone    string
	StoreDriver string
	BadgerPath  string
	Database    DatabaseConfig
	Storage     StorageConfig
	HTTP        HTTPConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Database settings also honour the RDS_* names injected by managed hosting.
func Load() *AppConfig {
	region := getEnv("STORAGE_REGION", getEnv("AWS_REGION", "us-east-1"))

	return &AppConfig{
		Port:        getEnv("PORT", "8080"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		BadgerPath:  getEnv("BADGER_PATH", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", getEnv("RDS_HOSTNAME", "")),
			Port:               getEnv("DB_PORT", getEnv("RDS_PORT", "5432")),
			User:               getEnv("DB_USER", getEnv("RDS_USERNAME", "")),
			Password:           getEnv("DB_PASSWORD", getEnv("RDS_PASSWORD", "")),
			Name:               getEnv("DB_NAME", getEnv("RDS_DB_NAME", "")),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			PingTimeoutSec:     getEnvInt("DB_PING_TIMEOUT_SEC", 5),
		},
		Storage: StorageConfig{
			Endpoint:           getEnv("STORAGE_ENDPOINT", "s3."+region+".amazonaws.com"),
			Region:             region,
			Bucket:             getEnv("STORAGE_BUCKET", ""),
			AccessKey:          getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:          getEnv("STORAGE_SECRET_KEY", ""),
			UseSSL:             getEnvBool("STORAGE_USE_SSL", true),
			PublicBaseURL:      getEnv("STORAGE_PUBLIC_BASE", ""),
			PublicRead:         getEnvBool("STORAGE_PUBLIC_READ", false),
			CreateBucket:       getEnvBool("STORAGE_CREATE_BUCKET", false),
			ConnectTimeoutSec:  getEnvInt("STORAGE_CONNECT_TIMEOUT_SEC", 5),
			TransferTimeoutSec: getEnvInt("STORAGE_TRANSFER_TIMEOUT_SEC", 30),
		},
		HTTP: HTTPConfig{
			MaxBodyBytes:     getEnvInt("MAX_BODY_BYTES", 10<<20),
			MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
			UploadBufferDir:  getEnv("UPLOAD_BUFFER_DIR", ""),
			StaticDir:        getEnv("STATIC_DIR", "./public"),
			CORSAllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
			CORSAllowMethods: getEnvList("CORS_ALLOW_METHODS", []string{"GET", "POST", "OPTIONS"}),
			CORSAllowHeaders: getEnvList("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
