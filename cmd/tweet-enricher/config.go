package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment/logging"
)

type Config struct {
	InPath          string
	OutPath         string
	PreparedOutPath string
	StatsOutPath    string
	Pretty          bool
	Overwrite       bool

	Model            string
	BaseURL          string
	APIKey           string
	Temperature      float64
	MaxTokens        int64
	StructuredOutput bool
	Retries          int
	PromptFile       string
	Offline          bool

	Operator    string
	LexiconPath string
	NoScreening bool

	Concurrency   int
	MaxClassified int
	RPS           float64
	Burst         int
	Timeout       time.Duration
	CallTimeout   time.Duration

	LogLevel string
	LogDev   bool
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if !c.Offline && c.Model == "" {
		return errors.New("missing -model")
	}
	if c.Operator == "" {
		return errors.New("missing -operator")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be within [0,2]")
	}
	if c.MaxTokens < 0 {
		return errors.New("max-tokens must be >= 0")
	}
	if c.Retries < 0 {
		return errors.New("retries must be >= 0")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	if c.MaxClassified < 0 {
		return errors.New("max-classified must be >= 0")
	}
	if c.RPS < 0 || c.Burst < 0 {
		return errors.New("rps and burst must be >= 0")
	}
	if c.Timeout < 0 || c.CallTimeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if c.OutPath == c.InPath || c.PreparedOutPath == c.InPath {
		return errors.New("outputs must not overwrite -in")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InPath:           filepath.FromSlash("data/raw/tweets.csv"),
		OutPath:          filepath.FromSlash("data/processed/tweets_enriched.csv"),
		PreparedOutPath:  filepath.FromSlash("data/processed/tweets_prepared.csv"),
		Model:            "gpt-4o-mini",
		Temperature:      0.1,
		MaxTokens:        300,
		StructuredOutput: true,
		Retries:          4,
		Operator:         "Free",
		Concurrency:      4,
		Timeout:          30 * time.Second,
		CallTimeout:      3 * time.Minute,
		LogLevel:         "info",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to the raw tweets CSV (needs a full_text or text column)")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the enriched CSV")
	fs.StringVar(&cfg.PreparedOutPath, "prepared-out", cfg.PreparedOutPath, "Output path for the screened CSV (empty disables)")
	fs.StringVar(&cfg.StatsOutPath, "stats-out", "", "Optional path for batch KPIs as JSON")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the stats JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	fs.StringVar(&cfg.Model, "model", cfg.Model, "Chat model to use (default from OPENAI_MODEL)")
	fs.StringVar(&cfg.BaseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "OpenAI-compatible endpoint (default from OPENAI_BASE_URL)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides OPENAI_API_KEY env var)")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	fs.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Max completion tokens per reply (0 = service default)")
	fs.BoolVar(&cfg.StructuredOutput, "structured-output", cfg.StructuredOutput, "Request strict JSON schema output (disable for endpoints without it)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Max retries per class of transient error (0 = no retries)")
	fs.StringVar(&cfg.PromptFile, "prompt-file", "", "Optional path to a custom prompt header (prepended before the required SECURITY+output tail)")
	fs.BoolVar(&cfg.Offline, "offline", false, "Skip the classifier; final fields rest on lexical signals only")

	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "Operator name used in prompts")
	fs.StringVar(&cfg.LexiconPath, "lexicon", "", "Optional YAML lexicon overriding the built-in keyword lists")
	fs.BoolVar(&cfg.NoScreening, "no-screening", false, "Classify every message with text, ignoring author and topic screening")

	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Max concurrent classifier calls")
	fs.IntVar(&cfg.MaxClassified, "max-classified", 0, "Classify only the first N eligible messages (0 = all)")
	fs.Float64Var(&cfg.RPS, "rps", 0, "Classifier requests per second across workers (0 = unlimited)")
	fs.IntVar(&cfg.Burst, "burst", 0, "Rate limiter burst (0 = derived from -rps)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout per classifier attempt")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "Bound on one message's classification including retries")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.LogDev, "log-dev", false, "Human-readable development logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Operator = strings.TrimSpace(cfg.Operator)
	cfg.InPath = filepath.Clean(cfg.InPath)
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	if cfg.PreparedOutPath != "" {
		cfg.PreparedOutPath = filepath.Clean(cfg.PreparedOutPath)
	}
	if cfg.StatsOutPath != "" {
		cfg.StatsOutPath = filepath.Clean(cfg.StatsOutPath)
	}
	if cfg.PromptFile != "" {
		cfg.PromptFile = filepath.Clean(cfg.PromptFile)
	}
	if cfg.LexiconPath != "" {
		cfg.LexiconPath = filepath.Clean(cfg.LexiconPath)
	}
	return cfg, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env. Variables already in the
// environment win, and missing files are skipped.
func loadEnvFiles() error {
	if p := os.Getenv("ENV_FILE"); p != "" {
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		return nil
	}
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
