package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "DOCUMENT_CLASSIFIER_CONFIG"

const (
	defaultTimezone   = "UTC"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	visionAPIKeyEnv   = "VISION_API_KEY"
	translateKeyEnv   = "TRANSLATE_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	blobAccessKeyEnv  = "BLOB_ACCESS_KEY"
	blobSecretKeyEnv  = "BLOB_SECRET_KEY"
	logLevelEnv       = "LOG_LEVEL"
	httpAddrEnv       = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Vision        VisionConfig       `yaml:"vision"`
	Translate     TranslateConfig    `yaml:"translate"`
	Blob          BlobConfig         `yaml:"blob"`
	Notifications NotificationConfig `yaml:"notifications"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Sweeper       SweeperConfig      `yaml:"sweeper"`
	HTTP          HTTPConfig         `yaml:"http"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls the slog handlers.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LLMConfig defines which hosted model runs classification and summaries.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseUrl"`
}

// VisionConfig describes the OCR endpoint.
type VisionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// TranslateConfig describes the language detection and translation endpoint.
type TranslateConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// BlobConfig describes where archive entries are re-hosted.
type BlobConfig struct {
	Backend       string        `yaml:"backend"`
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	UseSSL        bool          `yaml:"useSSL"`
	PublicBaseURL string        `yaml:"publicBaseUrl"`
	PresignTTL    time.Duration `yaml:"presignTTL"`
	LocalDir      string        `yaml:"localDir"`
}

// NotificationConfig encapsulates outbound channels and fallback behaviour.
type NotificationConfig struct {
	FallbackBroadcast bool           `yaml:"fallbackBroadcast"`
	LinkPrefix        string         `yaml:"linkPrefix"`
	Telegram          TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to mirror notifications.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// DepartmentConfig is one allowed department when the directory is empty.
type DepartmentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// TimeoutConfig bounds each external capability call.
type TimeoutConfig struct {
	Download  time.Duration `yaml:"download"`
	OCR       time.Duration `yaml:"ocr"`
	Translate time.Duration `yaml:"translate"`
	Classify  time.Duration `yaml:"classify"`
	Summary   time.Duration `yaml:"summary"`
	Notify    time.Duration `yaml:"notify"`
}

// PipelineConfig tunes the classification pipeline.
type PipelineConfig struct {
	Departments        []DepartmentConfig `yaml:"departments"`
	ArchiveConcurrency int                `yaml:"archiveConcurrency"`
	MaxEntryBytes      int64              `yaml:"maxEntryBytes"`
	RoleEscalation     bool               `yaml:"roleEscalation"`
	Timeouts           TimeoutConfig      `yaml:"timeouts"`
}

// SweeperConfig defines when stuck documents are failed.
type SweeperConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	StaleAfter     time.Duration  `yaml:"staleAfter"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the sweeper timezone string to a time.Location.
func (s SweeperConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`

	// AllowPrivateSources lets source URLs reach loopback and private networks.
	AllowPrivateSources bool `yaml:"allowPrivateSources"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(PathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse overlays YAML onto the defaults; keys absent from raw keep their default.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(visionAPIKeyEnv); v != "" {
		c.Vision.APIKey = v
	}

	if v := os.Getenv(translateKeyEnv); v != "" {
		c.Translate.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(blobAccessKeyEnv); v != "" {
		c.Blob.AccessKey = v
	}

	if v := os.Getenv(blobSecretKeyEnv); v != "" {
		c.Blob.SecretKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Sweeper.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Sweeper.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:documents.db?_pragma=busy_timeout(5000)"},
		Logging:  LoggingConfig{Level: "info"},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Vision: VisionConfig{Endpoint: "https://vision.googleapis.com/v1/images:annotate"},
		Translate: TranslateConfig{
			Endpoint: "https://translation.googleapis.com/language/translate/v2",
		},
		Blob: BlobConfig{
			Backend:    "local",
			Bucket:     "documents",
			Region:     "us-east-1",
			PresignTTL: 24 * time.Hour,
			LocalDir:   "data/blobs",
		},
		Notifications: NotificationConfig{
			FallbackBroadcast: true,
			LinkPrefix:        "/documents/",
		},
		Pipeline: PipelineConfig{
			ArchiveConcurrency: 4,
			MaxEntryBytes:      100 * 1024 * 1024,
			Timeouts: TimeoutConfig{
				Download:  30 * time.Second,
				OCR:       30 * time.Second,
				Translate: 15 * time.Second,
				Classify:  90 * time.Second,
				Summary:   60 * time.Second,
				Notify:    10 * time.Second,
			},
		},
		Sweeper: SweeperConfig{
			CronExpression: "*/15 * * * *",
			Timezone:       defaultTimezone,
			StaleAfter:     30 * time.Minute,
			location:       tz,
		},
		HTTP: HTTPConfig{Addr: ":8080", MaxUploadBytes: 200 * 1024 * 1024},
	}
}
