package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docinsight/internal/budget"
	"github.com/dgallion1/docinsight/internal/embed"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/ranking"
	"github.com/dgallion1/docinsight/internal/scoring"
	"github.com/dgallion1/docinsight/internal/section"
)

// EnvConfigPath names the environment variable holding the YAML config path.
const EnvConfigPath = "DOCINSIGHT_CONFIG"

type Config struct {
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Batch I/O
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`

	// HTTP server
	Port           string        `yaml:"port" validate:"required,numeric"`
	APIKey         string        `yaml:"api_key"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gte=1024"`
	MaxQueueSize   int           `yaml:"max_queue_size" validate:"gte=1"`
	JobTTL         time.Duration `yaml:"job_ttl" validate:"gt=0"`

	// Worker pool
	WorkerCount int `yaml:"worker_count" validate:"gte=1,lte=256"`

	// Documents
	MaxPages             int  `yaml:"max_pages" validate:"gte=1,lte=1000"`
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Time budgets
	OutlineBudget time.Duration `yaml:"outline_budget" validate:"gt=0"`
	RankBudget    time.Duration `yaml:"rank_budget" validate:"gt=0"`

	// Ranking
	TopK          int     `yaml:"top_k" validate:"gte=1,lte=100"`
	ParagraphGap  float64 `yaml:"paragraph_gap" validate:"gt=0,lte=10"`
	TruncateChars int     `yaml:"truncate_chars" validate:"gte=100"`
	ChunkSize     int     `yaml:"chunk_size" validate:"gte=20"`

	Embed EmbedConfig `yaml:"embed"`
}

type EmbedConfig struct {
	Provider   string        `yaml:"provider" validate:"oneof=ollama hash none"`
	OllamaURL  string        `yaml:"ollama_url" validate:"omitempty,url"`
	Model      string        `yaml:"model"`
	Dims       int           `yaml:"dims" validate:"gte=0,lte=8192"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBase  time.Duration `yaml:"retry_base" validate:"gte=0"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:  "info",
		InputDir:  "input",
		OutputDir: "output",

		Port:           "8090",
		MaxUploadBytes: 52428800, // 50MB
		MaxQueueSize:   100,
		JobTTL:         1 * time.Hour,

		WorkerCount: runtime.NumCPU(),

		MaxPages:             parser.DefaultMaxPages,
		PDFFallbackPdftotext: false,

		OutlineBudget: budget.OutlineLimit,
		RankBudget:    budget.RankLimit,

		TopK:          ranking.DefaultTopK,
		ParagraphGap:  section.DefaultParagraphGapFactor,
		TruncateChars: scoring.DefaultTruncateChars,
		ChunkSize:     120,

		Embed: EmbedConfig{
			Provider:   embed.ProviderHash,
			OllamaURL:  "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dims:       embed.DefaultHashDims,
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			RetryBase:  200 * time.Millisecond,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or $DOCINSIGHT_CONFIG
// when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = strings.ToLower(envOr("LOG_LEVEL", c.LogLevel))
	c.InputDir = envOr("INPUT_DIR", c.InputDir)
	c.OutputDir = envOr("OUTPUT_DIR", c.OutputDir)

	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("DOCINSIGHT_API_KEY", c.APIKey)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)

	c.MaxPages = envInt("MAX_PAGES", c.MaxPages)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.OutlineBudget = envDuration("OUTLINE_BUDGET", c.OutlineBudget)
	c.RankBudget = envDuration("RANK_BUDGET", c.RankBudget)

	c.TopK = envInt("TOP_K", c.TopK)

	c.Embed.Provider = strings.ToLower(envOr("EMBED_PROVIDER", c.Embed.Provider))
	c.Embed.OllamaURL = envOr("OLLAMA_URL", c.Embed.OllamaURL)
	c.Embed.Model = envOr("EMBED_MODEL", c.Embed.Model)
	c.Embed.Dims = envInt("EMBED_DIMS", c.Embed.Dims)
	c.Embed.Timeout = envDuration("EMBED_TIMEOUT", c.Embed.Timeout)
	c.Embed.MaxRetries = envInt("EMBED_MAX_RETRIES", c.Embed.MaxRetries)
}

// Validate checks field ranges and the combinations struct tags cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.Embed.Provider == embed.ProviderOllama {
		if c.Embed.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required for the ollama provider")
		}
		if c.Embed.Model == "" {
			return fmt.Errorf("EMBED_MODEL is required for the ollama provider")
		}
	}
	if c.OutlineBudget > c.RankBudget {
		return fmt.Errorf("outline budget %s exceeds rank budget %s", c.OutlineBudget, c.RankBudget)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) EmbedderConfig() embed.Config {
	return embed.Config{
		Provider:   c.Embed.Provider,
		OllamaURL:  c.Embed.OllamaURL,
		Model:      c.Embed.Model,
		Dims:       c.Embed.Dims,
		Timeout:    c.Embed.Timeout,
		MaxRetries: c.Embed.MaxRetries,
		RetryBase:  c.Embed.RetryBase,
	}
}

func (c Config) ParserOptions() parser.Options {
	return parser.Options{MaxPages: c.MaxPages, FallbackPdftotext: c.PDFFallbackPdftotext}
}

// RunnerOptions translates the configuration into batch runner options.
func (c Config) RunnerOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Workers = c.WorkerCount
	opts.OutlineLimit = c.OutlineBudget
	opts.RankLimit = c.RankBudget
	opts.TopK = c.TopK
	opts.ParagraphGap = c.ParagraphGap
	opts.Scoring.TruncateChars = c.TruncateChars
	opts.Scoring.Chunker.ChunkSize = c.ChunkSize
	return opts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
