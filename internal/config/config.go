package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration
	JWTIssuer string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	SendGridAPIKey     string
	MailFromEmail      string
	MailFromName       string
	MailOperatorName   string
	MailOperatorEmail  string
	MailCopyRespondent bool

	DashboardCacheTTL    time.Duration
	DedupeTTL            time.Duration
	UploadMaxMB          int
	NotificationsChannel string
	NATSURL              string

	OpenAIAPIKey string
	OpenAIModel  string

	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigins     []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// BodyLimit is the largest request body fiber accepts: the upload ceiling plus room for form fields.
func (c Config) BodyLimit() int {
	return (c.UploadMaxMB + 1) * 1024 * 1024
}

// StorageEnabled reports whether Cloudinary credentials are present.
func (c Config) StorageEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VASTU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Vastu API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("jwt.issuer", "vastu-api")
	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("cloudinary.folder", "vastu/students")
	v.SetDefault("mail.from_name", "Vastu Consultancy")
	v.SetDefault("mail.operator_name", "Vastu Consultancy")
	v.SetDefault("mail.copy_respondent", true)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("dedupe.ttl", "10m")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("notifications.channel", "vastu")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("ratelimit.max", 10)
	v.SetDefault("ratelimit.window", "1m")

	jwtTTL, err := duration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	dashboardTTL, err := duration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	dedupeTTL, err := duration(v, "dedupe.ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := duration(v, "ratelimit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		JWTIssuer:              v.GetString("jwt.issuer"),
		AdminEmail:             v.GetString("admin.email"),
		AdminPassword:          v.GetString("admin.password"),
		AdminName:              v.GetString("admin.name"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		SendGridAPIKey:         v.GetString("sendgrid.api_key"),
		MailFromEmail:          v.GetString("mail.from_email"),
		MailFromName:           v.GetString("mail.from_name"),
		MailOperatorName:       v.GetString("mail.operator_name"),
		MailOperatorEmail:      v.GetString("mail.operator_email"),
		MailCopyRespondent:     v.GetBool("mail.copy_respondent"),
		DashboardCacheTTL:      dashboardTTL,
		DedupeTTL:              dedupeTTL,
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		NotificationsChannel:   v.GetString("notifications.channel"),
		NATSURL:                v.GetString("nats.url"),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		RateLimitMax:           v.GetInt("ratelimit.max"),
		RateLimitWindow:        rateWindow,
		CORSOrigins:            splitList(v.GetString("cors.origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 10
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	parsed, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
