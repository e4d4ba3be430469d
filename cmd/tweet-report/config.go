package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment"
)

type Config struct {
	InPath       string
	OutPath      string
	StatsOutPath string
	QueueOutPath string
	Operator     string
	TopN         int
	MinPriority  string
	Pretty       bool
	Overwrite    bool
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Operator == "" {
		return errors.New("missing -operator")
	}
	if c.TopN < 0 {
		return errors.New("top must be >= 0")
	}
	if _, ok := enrichment.ParsePriority(c.MinPriority); !ok {
		return errors.New("min-priority must be one of none, low, medium, high, critical")
	}
	return nil
}

func (c Config) minPriority() enrichment.Priority {
	p, _ := enrichment.ParsePriority(c.MinPriority)
	return p
}

func defaultConfig() Config {
	return Config{
		InPath:      filepath.FromSlash("data/processed/tweets_enriched.csv"),
		OutPath:     filepath.FromSlash("data/processed/report.md"),
		Operator:    "Free",
		TopN:        10,
		MinPriority: "low",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to an enriched CSV written by tweet-enricher")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the markdown report")
	fs.StringVar(&cfg.StatsOutPath, "stats-out", "", "Optional path for the KPIs as JSON")
	fs.StringVar(&cfg.QueueOutPath, "queue-out", "", "Optional path for the agent queue as CSV")
	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "Operator name used in the report")
	fs.IntVar(&cfg.TopN, "top", cfg.TopN, "Number of queued complaints listed in the report (0 disables the table)")
	fs.StringVar(&cfg.MinPriority, "min-priority", cfg.MinPriority, "Lowest final priority included in the agent queue")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the stats JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Operator = strings.TrimSpace(cfg.Operator)
	cfg.InPath = filepath.Clean(cfg.InPath)
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	if cfg.StatsOutPath != "" {
		cfg.StatsOutPath = filepath.Clean(cfg.StatsOutPath)
	}
	if cfg.QueueOutPath != "" {
		cfg.QueueOutPath = filepath.Clean(cfg.QueueOutPath)
	}
	return cfg, nil
}
