package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tripchat/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	// DemoMode serves the canned in-memory fixtures instead of Postgres.
	DemoMode bool `json:"demo_mode"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	JWTSecret string `json:"-"`
	SentryDSN string `json:"-"`

	Redis RedisConfig `json:"redis"`

	// StreamTransport selects how live subscriptions are fed: "hub" pushes
	// in-process, "poll" reads the store and also sees other replicas.
	StreamTransport string `json:"stream_transport"`
	// SubscriberBuffer is the per-subscription outbound buffer; a client
	// that falls this far behind is disconnected.
	SubscriberBuffer int `json:"subscriber_buffer"`
	// PollIntervalSeconds drives the poll-and-diff fallback transport.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	// MessageRetentionDays controls purging of soft-deleted messages;
	// 0 keeps them forever.
	MessageRetentionDays int `json:"message_retention_days"`
	// RateLimitSendPerMin caps sends per user per channel per minute.
	RateLimitSendPerMin int `json:"rate_limit_send_per_min"`
}

func init() {
	// Load .env if present; environment variables win either way.
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DemoMode:    getEnv("DEMO_MODE", "false") == "true",

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "tripchat"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		JWTSecret: getEnv("JWT_SECRET", ""),
		SentryDSN: getEnv("SENTRY_DSN", ""),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		StreamTransport:      getEnv("STREAM_TRANSPORT", "hub"),
		SubscriberBuffer:     getEnvAsInt("SUBSCRIBER_BUFFER", 64),
		PollIntervalSeconds:  getEnvAsInt("POLL_INTERVAL_SECONDS", 3),
		MessageRetentionDays: getEnvAsInt("MESSAGE_RETENTION_DAYS", 0),
		RateLimitSendPerMin:  getEnvAsInt("RATE_LIMIT_SEND_PER_MIN", 60),
	}

	if AppConfig.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !AppConfig.DemoMode && AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required outside demo mode")
	}
	if AppConfig.StreamTransport != "hub" && AppConfig.StreamTransport != "poll" {
		return fmt.Errorf("STREAM_TRANSPORT must be \"hub\" or \"poll\", got %q", AppConfig.StreamTransport)
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Connected to the database, starting migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}
	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	if AppConfig.DemoMode {
		log.Printf("Demo mode: serving canned fixtures, no database")
	} else {
		log.Printf("Database: %s@%s:%s/%s",
			AppConfig.DBUser,
			AppConfig.DBHost,
			AppConfig.DBPort,
			AppConfig.DBName)
	}
	log.Printf("Redis enabled: %t", AppConfig.Redis.Enabled)
}

func migrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Trip{},
		&models.Role{},
		&models.RoleAssignment{},
		&models.AdminGrant{},
		&models.Channel{},
		&models.ChannelRequiredRole{},
		&models.ChannelAccessSnapshot{},
		&models.Message{},
		&models.ChannelReadMarker{},
	); err != nil {
		return err
	}

	// Role names are unique per trip case-insensitively. AutoMigrate cannot
	// express a functional index, so it is created with raw SQL.
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_roles_trip_lower_name ON roles (trip_id, LOWER(name))`,
		).Error; err != nil {
			return fmt.Errorf("failed to create role name index: %w", err)
		}
	}
	return nil
}
