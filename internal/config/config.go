package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultDatabaseURL keeps the store in process memory, matching a single-node deployment with no durability.
const DefaultDatabaseURL = "file:studyrooms?mode=memory&cache=shared"

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	PublicBaseURL          string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannel        string
	JWTSecret              string
	JWTTTL                 time.Duration
	BcryptCost             int
	UploadMaxMB            int
	UploadDir              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	CORSOrigins            string
	AuthRateLimitPerMinute int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether uploads should go to Cloudinary instead of local disk.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STUDYROOMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Study Rooms API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("database.url", DefaultDatabaseURL)
	v.SetDefault("realtime.channel", "studyrooms")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("bcrypt.cost", 10)
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("cloudinary.folder", "studyrooms/attachments")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("ratelimit.auth_per_minute", 20)

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		PublicBaseURL:          strings.TrimRight(v.GetString("public.base_url"), "/"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannel:        v.GetString("realtime.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 ttl,
		BcryptCost:             v.GetInt("bcrypt.cost"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		UploadDir:              v.GetString("upload.dir"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		CORSOrigins:            v.GetString("cors.origins"),
		AuthRateLimitPerMinute: v.GetInt("ratelimit.auth_per_minute"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("jwt ttl must be positive")
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost" + cfg.HTTPAddress()
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	if cfg.AuthRateLimitPerMinute <= 0 {
		cfg.AuthRateLimitPerMinute = 20
	}

	return cfg, nil
}
