package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment"
	"github.com/theimaginaryfoundation/tweet-triage/enrichment/fileutils"
	"github.com/theimaginaryfoundation/tweet-triage/enrichment/logging"
	"github.com/theimaginaryfoundation/tweet-triage/enrichment/provider"
)

func main() {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if !cfg.Offline && cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key, or run with -offline)")
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var classifier enrichment.Classifier = enrichment.OfflineClassifier{}
	if !cfg.Offline {
		c, err := buildClassifier(cfg, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		classifier = c
	}

	stats, err := run(ctx, cfg, classifier, logger)
	if err != nil {
		logger.Error("enrichment failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "messages=%d kept=%d classified=%d degraded=%d complaints=%d urgent=%d enriched=%s prepared=%s\n",
		stats.Total, stats.Kept, stats.Classified, stats.DegradedVerdicts, stats.Complaints, stats.UrgentComplaints, cfg.OutPath, cfg.PreparedOutPath)
}

func buildClassifier(cfg Config, logger *zap.Logger) (*provider.Classifier, error) {
	instructions := provider.DefaultInstructions(cfg.Operator)
	if cfg.PromptFile != "" {
		h, err := provider.LoadPromptHeaderFromFile(cfg.PromptFile)
		if err != nil {
			return nil, err
		}
		instructions = provider.ComposeInstructions(h)
	}

	pcfg := provider.DefaultConfig()
	pcfg.Model = cfg.Model
	pcfg.Temperature = cfg.Temperature
	pcfg.MaxTokens = cfg.MaxTokens
	pcfg.Timeout = cfg.Timeout
	pcfg.StructuredOutput = cfg.StructuredOutput
	pcfg.Instructions = instructions
	pcfg.Retry = provider.DefaultRetryPolicy().Limit(cfg.Retries)
	pcfg.Logger = logger

	client := provider.NewOpenAIClient(cfg.APIKey, cfg.BaseURL)
	return provider.NewClassifier(&client.Chat.Completions, pcfg)
}

// screeningFor returns the screening rules for operator. The built-in rules target Free; any
// other operator is matched by name only and has no known official accounts.
func screeningFor(operator string) *enrichment.Screening {
	if strings.EqualFold(operator, "free") {
		return enrichment.DefaultScreening()
	}
	name := strings.ToLower(operator)
	return &enrichment.Screening{OperatorKeywords: []string{name, "@" + name}}
}

// run loads, enriches and writes one batch. On cancellation the outputs are still written, with
// unclassified rows marked degraded, and the context error is returned.
func run(ctx context.Context, cfg Config, classifier enrichment.Classifier, logger *zap.Logger) (enrichment.Stats, error) {
	for _, p := range []string{cfg.OutPath, cfg.PreparedOutPath, cfg.StatsOutPath} {
		if p == "" {
			continue
		}
		if err := fileutils.EnsureWritable(p, cfg.Overwrite); err != nil {
			return enrichment.Stats{}, err
		}
	}

	msgs, header, err := enrichment.LoadMessagesFile(cfg.InPath)
	if err != nil {
		return enrichment.Stats{}, err
	}
	logger.Info("loaded messages", zap.String("path", cfg.InPath), zap.Int("count", len(msgs)))

	lex := enrichment.DefaultLexicon()
	if cfg.LexiconPath != "" {
		lex, err = enrichment.LoadLexiconFile(cfg.LexiconPath)
		if err != nil {
			return enrichment.Stats{}, err
		}
	}

	extractor := enrichment.NewExtractor(lex)
	logger.Info("lexicon ready", zap.String("path", cfg.LexiconPath), zap.Strings("topics", extractor.Topics()))

	opts := enrichment.Options{
		Concurrency:       cfg.Concurrency,
		MaxClassified:     cfg.MaxClassified,
		RequestsPerSecond: cfg.RPS,
		Burst:             cfg.Burst,
		CallTimeout:       cfg.CallTimeout,
		Logger:            logger,
	}
	if !cfg.NoScreening {
		opts.Screening = screeningFor(cfg.Operator)
	}
	pipeline, err := enrichment.NewPipeline(extractor, classifier, opts)
	if err != nil {
		return enrichment.Stats{}, err
	}

	results, runErr := pipeline.Run(ctx, msgs)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return enrichment.Stats{}, runErr
	}

	if cfg.PreparedOutPath != "" {
		if err := enrichment.WriteResults(cfg.PreparedOutPath, enrichment.Header(header, enrichment.PreparedColumns), results); err != nil {
			return enrichment.Stats{}, err
		}
	}
	if err := enrichment.WriteResults(cfg.OutPath, enrichment.Header(header, enrichment.EnrichedColumns), results); err != nil {
		return enrichment.Stats{}, err
	}

	stats := enrichment.ComputeStats(results)
	if cfg.StatsOutPath != "" {
		if err := fileutils.WriteJSONFileAtomic(cfg.StatsOutPath, stats, cfg.Pretty); err != nil {
			return enrichment.Stats{}, err
		}
	}
	logger.Info("wrote outputs",
		zap.String("enriched", cfg.OutPath),
		zap.String("prepared", cfg.PreparedOutPath),
		zap.Int("complaints", stats.Complaints))
	return stats, runErr
}
