package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	Events   EventsConfig   `yaml:"events"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

// SiteConfig identifies the intake point; it feeds storage keys and
// confirmation numbers.
type SiteConfig struct {
	Agency      string `yaml:"agency"`
	Country     string `yaml:"country"`
	State       string `yaml:"state"`
	AirportCode string `yaml:"airport_code"`
}

// StorageConfig holds capture and artifact storage configuration
type StorageConfig struct {
	Root       string `yaml:"root"`
	BucketRoot string `yaml:"bucket_root"`
	CaptureDir string `yaml:"capture_dir"`
	UploadDir  string `yaml:"upload_dir"`
	FormsDir   string `yaml:"forms_dir"`
}

// DatabaseConfig holds database-related configuration.
// Driver is "pgx" or "sqlite".
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine          string  `yaml:"engine"` // tesseract | vision
	TesseractBinary string  `yaml:"tesseract_binary"`
	Language        string  `yaml:"language"`
	TessdataDir     string  `yaml:"tessdata_dir"`
	HeicConverter   string  `yaml:"heic_converter"`
	VisionRPS       float64 `yaml:"vision_rps"`
	VisionBurst     int     `yaml:"vision_burst"`
	VisionCredFile  string  `yaml:"vision_credentials_file"`
}

// EventsConfig holds event publishing configuration. An empty NATSURL
// disables publishing.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// WorkerConfig sizes the background processing queue
type WorkerConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:       "./data",
			BucketRoot: "images",
			CaptureDir: "./captures",
			UploadDir:  "./uploads",
			FormsDir:   "./forms",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:traveler.db?_pragma=busy_timeout(5000)",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			HTTPAddr: ":8081",
		},
		OCR: OCRConfig{
			Engine:          "tesseract",
			TesseractBinary: "tesseract",
			Language:        "eng",
			HeicConverter:   "magick",
			VisionRPS:       5,
			VisionBurst:     5,
		},
		Events: EventsConfig{
			Subject: "travel.documents.extracted",
		},
		Worker: WorkerConfig{
			Workers:   2,
			QueueSize: 64,
			Timeout:   2 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig builds the configuration in three layers: defaults, an optional
// YAML settings file, then environment variables (a .env file in the working
// directory is loaded first when present).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read settings file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse settings file", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "load .env", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Site.Agency = getEnv("SITE_AGENCY", cfg.Site.Agency)
	cfg.Site.Country = getEnv("SITE_COUNTRY", cfg.Site.Country)
	cfg.Site.State = getEnv("SITE_STATE", cfg.Site.State)
	cfg.Site.AirportCode = strings.ToUpper(getEnv("SITE_AIRPORT_CODE", cfg.Site.AirportCode))

	cfg.Storage.Root = getEnv("STORAGE_ROOT", cfg.Storage.Root)
	cfg.Storage.BucketRoot = getEnv("BUCKET_ROOT", cfg.Storage.BucketRoot)
	cfg.Storage.CaptureDir = getEnv("CAPTURE_DIR", cfg.Storage.CaptureDir)
	cfg.Storage.UploadDir = getEnv("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.FormsDir = getEnv("FORMS_DIR", cfg.Storage.FormsDir)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_URL", cfg.Database.DSN)
	cfg.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", cfg.Database.MaxConnIdleTime)
	cfg.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", cfg.Database.DialTimeout)

	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.HTTPAddr = getEnv("HTTP_ADDR", cfg.Server.HTTPAddr)

	cfg.OCR.Engine = getEnv("OCR_ENGINE", cfg.OCR.Engine)
	cfg.OCR.TesseractBinary = getEnv("TESSERACT_BIN", cfg.OCR.TesseractBinary)
	cfg.OCR.Language = getEnv("OCR_LANG", cfg.OCR.Language)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.OCR.HeicConverter = getEnv("HEIC_CONVERTER", cfg.OCR.HeicConverter)
	cfg.OCR.VisionRPS = getEnvAsFloat64("VISION_RPS", cfg.OCR.VisionRPS)
	cfg.OCR.VisionBurst = getEnvAsInt("VISION_BURST", cfg.OCR.VisionBurst)
	cfg.OCR.VisionCredFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.OCR.VisionCredFile)

	cfg.Events.NATSURL = getEnv("NATS_URL", cfg.Events.NATSURL)
	cfg.Events.Subject = getEnv("NATS_SUBJECT", cfg.Events.Subject)

	cfg.Worker.Workers = getEnvAsInt("WORKERS", cfg.Worker.Workers)
	cfg.Worker.QueueSize = getEnvAsInt("QUEUE_SIZE", cfg.Worker.QueueSize)
	cfg.Worker.Timeout = getEnvAsDuration("JOB_TIMEOUT", cfg.Worker.Timeout)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "tesseract", "vision":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_ENGINE %q", c.OCR.Engine), ErrInvalidInput)
	}
	if c.Worker.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	if len(c.Site.AirportCode) != 3 {
		return NewAppError("CONFIG_ERROR", "SITE_AIRPORT_CODE must be a 3-letter code", ErrInvalidInput)
	}
	return nil
}
