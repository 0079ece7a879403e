package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	NATS          NATSConfig
	CloudWatch    CloudWatchConfig
	S3            S3Config
	Dynamo        DynamoConfig
	SES           SESConfig
	Security      SecurityConfig
	Monitoring    MonitoringConfig
	Broadcast     BroadcastConfig
	History       HistoryConfig
	Reports       ReportsConfig
	Notifications NotificationsConfig

	// SeedFile YAML с начальными порогами и отчетами
	SeedFile string
}

type ServerConfig struct {
	Port            string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	// AsSource добавляет источник database_latency
	AsSource bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	PoolSize int
}

type NATSConfig struct {
	Enabled        bool
	URL            string
	Stream         string
	ForwardMetrics bool
}

type CloudWatchConfig struct {
	MetricsEnabled           bool
	LogsEnabled              bool
	Region                   string
	Endpoint                 string
	AccessKeyID              string
	SecretAccessKey          string
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32
	LogGroupName             string
	LogStreamName            string
	LogsBufferSize           int
	LogsFlushInterval        time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type DynamoConfig struct {
	Enabled         bool
	TableReportJobs string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

type SESConfig struct {
	Enabled         bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	From            string
	AlertRecipients []string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
	CookieTTL      time.Duration
}

type MonitoringConfig struct {
	CollectionInterval time.Duration
	SampleTimeout      time.Duration
	EvaluationInterval time.Duration
	RegistryCapacity   int
	StaleAfter         time.Duration
	MaxClockSkew       time.Duration

	SystemSource   bool
	SystemSourceID string
	CPUWindow      time.Duration
	DiskMounts     []string

	// HTTPProbes имя адаптера -> URL статуса
	HTTPProbes      map[string]string
	SourceIntervals map[string]time.Duration
}

type BroadcastConfig struct {
	QueueCapacity        int
	ConsecutiveDropLimit int
}

type HistoryConfig struct {
	Resolution       time.Duration
	Retention        int
	PersistQueue     int
	FlushInterval    time.Duration
	DefaultBucket    time.Duration
	MaxQueryRange    time.Duration
	ResolvedAlertCap int
}

type ReportsConfig struct {
	TickInterval    time.Duration
	DeliveryTimeout time.Duration
	SeriesPoints    int
}

type NotificationsConfig struct {
	MinSeverity string
	Channels    []string
	Timeout     time.Duration
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &envParser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     p.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "monitoring"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			AsSource:        getEnvBool("DB_AS_SOURCE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.integer("REDIS_DB", 0),
			TTL:      p.duration("REDIS_TTL", 30*time.Second),
			PoolSize: p.integer("REDIS_POOL_SIZE", 10),
		},
		NATS: NATSConfig{
			Enabled:        getEnvBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:         getEnv("NATS_STREAM", "MONITORING"),
			ForwardMetrics: getEnvBool("NATS_FORWARD_METRICS", false),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:                   getEnv("AWS_REGION", "us-east-1"),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "MonitoringCore/Readings"),
			MetricsDimensions:        p.pairs("CLOUDWATCH_METRICS_DIMENSIONS", ""),
			MetricsBufferSize:        p.integer("CLOUDWATCH_METRICS_BUFFER_SIZE", 100),
			MetricsFlushInterval:     p.duration("CLOUDWATCH_METRICS_FLUSH_INTERVAL", 10*time.Second),
			MetricsStorageResolution: int32(p.integer("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", 60)),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/monitoring-core/app"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", hostname()),
			LogsBufferSize:           p.integer("CLOUDWATCH_LOGS_BUFFER_SIZE", 100),
			LogsFlushInterval:        p.duration("CLOUDWATCH_LOGS_FLUSH_INTERVAL", 5*time.Second),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
		},
		Dynamo: DynamoConfig{
			Enabled:         getEnvBool("DYNAMO_ENABLED", false),
			TableReportJobs: getEnv("DYNAMO_TABLE_REPORT_JOBS", "monitoring_report_jobs"),
			Region:          getEnv("DYNAMO_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("DYNAMO_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("DYNAMO_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", true),
		},
		SES: SESConfig{
			Enabled:         getEnvBool("SES_ENABLED", false),
			Region:          getEnv("SES_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("SES_ENDPOINT", ""),
			AccessKeyID:     getEnv("SES_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("SES_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			From:            getEnv("SES_FROM", ""),
			AlertRecipients: splitCSV(getEnv("SES_ALERT_RECIPIENTS", "")),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitRPS:   p.number("RATE_LIMIT_RPS", 50),
			RateLimitBurst: p.integer("RATE_LIMIT_BURST", 100),
			CookieTTL:      p.duration("AUTH_COOKIE_TTL", 12*time.Hour),
		},
		Monitoring: MonitoringConfig{
			CollectionInterval: p.duration("MONITORING_COLLECTION_INTERVAL", 10*time.Second),
			SampleTimeout:      p.duration("MONITORING_SAMPLE_TIMEOUT", 5*time.Second),
			EvaluationInterval: p.duration("MONITORING_EVALUATION_INTERVAL", 10*time.Second),
			RegistryCapacity:   p.integer("MONITORING_REGISTRY_CAPACITY", 360),
			StaleAfter:         p.duration("MONITORING_STALE_AFTER", 2*time.Minute),
			MaxClockSkew:       p.duration("MONITORING_MAX_CLOCK_SKEW", 5*time.Minute),
			SystemSource:       getEnvBool("MONITORING_SYSTEM_SOURCE", true),
			SystemSourceID:     getEnv("MONITORING_SYSTEM_SOURCE_ID", "system"),
			CPUWindow:          p.duration("MONITORING_CPU_WINDOW", 500*time.Millisecond),
			DiskMounts:         splitCSV(getEnv("MONITORING_DISK_MOUNTS", "/")),
			HTTPProbes:         p.pairs("MONITORING_HTTP_PROBES", ""),
			SourceIntervals:    p.durations("MONITORING_SOURCE_INTERVALS", ""),
		},
		Broadcast: BroadcastConfig{
			QueueCapacity:        p.integer("BROADCAST_QUEUE_CAPACITY", 100),
			ConsecutiveDropLimit: p.integer("BROADCAST_DROP_LIMIT", 200),
		},
		History: HistoryConfig{
			Resolution:       p.duration("HISTORY_RESOLUTION", time.Minute),
			Retention:        p.integer("HISTORY_RETENTION", 1440),
			PersistQueue:     p.integer("HISTORY_PERSIST_QUEUE", 1024),
			FlushInterval:    p.duration("HISTORY_FLUSH_INTERVAL", 15*time.Second),
			DefaultBucket:    p.duration("HISTORY_DEFAULT_BUCKET", 5*time.Minute),
			MaxQueryRange:    p.duration("HISTORY_MAX_QUERY_RANGE", 7*24*time.Hour),
			ResolvedAlertCap: p.integer("ALERTS_RESOLVED_RETENTION", 1000),
		},
		Reports: ReportsConfig{
			TickInterval:    p.duration("REPORTS_TICK_INTERVAL", time.Minute),
			DeliveryTimeout: p.duration("REPORTS_DELIVERY_TIMEOUT", 30*time.Second),
			SeriesPoints:    p.integer("REPORTS_SERIES_POINTS", 24),
		},
		Notifications: NotificationsConfig{
			MinSeverity: strings.ToLower(getEnv("NOTIFY_MIN_SEVERITY", "warning")),
			Channels:    splitCSV(getEnv("NOTIFY_CHANNELS", "")),
			Timeout:     p.duration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		SeedFile: getEnv("MONITORING_SEED_FILE", ""),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if c.Security.RateLimitRPS <= 0 || c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	positive := map[string]time.Duration{
		"MONITORING_COLLECTION_INTERVAL": c.Monitoring.CollectionInterval,
		"MONITORING_SAMPLE_TIMEOUT":      c.Monitoring.SampleTimeout,
		"MONITORING_EVALUATION_INTERVAL": c.Monitoring.EvaluationInterval,
		"HISTORY_RESOLUTION":             c.History.Resolution,
		"HISTORY_FLUSH_INTERVAL":         c.History.FlushInterval,
		"REPORTS_TICK_INTERVAL":          c.Reports.TickInterval,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.History.DefaultBucket%c.History.Resolution != 0 {
		return fmt.Errorf("HISTORY_DEFAULT_BUCKET must be a multiple of HISTORY_RESOLUTION")
	}
	if c.Monitoring.RegistryCapacity <= 0 {
		return fmt.Errorf("MONITORING_REGISTRY_CAPACITY must be positive")
	}

	switch c.Notifications.MinSeverity {
	case "info", "warning", "critical":
	default:
		return fmt.Errorf("invalid NOTIFY_MIN_SEVERITY: %q", c.Notifications.MinSeverity)
	}

	if c.Database.Enabled && c.Database.DSN() == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST is required when DB_ENABLED=true")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.SES.Enabled && c.SES.From == "" {
		return fmt.Errorf("SES_FROM is required when SES_ENABLED=true")
	}
	if c.Dynamo.Enabled && c.Dynamo.TableReportJobs == "" {
		return fmt.Errorf("DYNAMO_TABLE_REPORT_JOBS is required when DYNAMO_ENABLED=true")
	}

	return nil
}

// DSN returns DATABASE_URL when set and a key/value DSN otherwise.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// envParser keeps the first malformed value so Load reports it.
type envParser struct {
	err error
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := parseDuration(value)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return parsed
}

func (p *envParser) integer(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return parsed
}

func (p *envParser) number(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return parsed
}

// pairs parses "name=value,name2=value2".
func (p *envParser) pairs(key, fallback string) map[string]string {
	out := make(map[string]string)
	for _, item := range splitCSV(getEnv(key, fallback)) {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" || value == "" {
			p.fail(key, fmt.Errorf("expected name=value, got %q", item))
			continue
		}
		out[name] = value
	}
	return out
}

func (p *envParser) durations(key, fallback string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for name, raw := range p.pairs(key, fallback) {
		parsed, err := parseDuration(raw)
		if err != nil || parsed <= 0 {
			p.fail(key, fmt.Errorf("bad interval for %s: %q", name, raw))
			continue
		}
		out[name] = parsed
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "monitoring-core"
	}
	return name
}
