package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment"
	"github.com/theimaginaryfoundation/tweet-triage/enrichment/fileutils"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	stats, queued, err := run(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "messages=%d complaints=%d urgent=%d queued=%d report=%s\n",
		stats.Total, stats.Complaints, stats.UrgentComplaints, queued, cfg.OutPath)
}

// queueColumns are the agent-facing columns of the queue export.
var queueColumns = []string{
	"id", "screen_name", "created_at", enrichment.ColTextClean,
	enrichment.ColFinalPriority, enrichment.ColFinalComplaintType, enrichment.ColFinalSentiment,
	enrichment.ColFinalSarcasm, enrichment.ColCancellationRisk, enrichment.ColExplanation,
}

func run(cfg Config) (enrichment.Stats, int, error) {
	for _, p := range []string{cfg.OutPath, cfg.StatsOutPath, cfg.QueueOutPath} {
		if p == "" {
			continue
		}
		if err := fileutils.EnsureWritable(p, cfg.Overwrite); err != nil {
			return enrichment.Stats{}, 0, err
		}
	}

	results, err := enrichment.LoadResultsFile(cfg.InPath)
	if err != nil {
		return enrichment.Stats{}, 0, err
	}
	stats := enrichment.ComputeStats(results)
	queue := enrichment.AgentQueue(results, cfg.minPriority())

	report := enrichment.BuildReport(cfg.Operator, stats, queue, cfg.TopN)
	if err := fileutils.WriteFileAtomicSameDir(cfg.OutPath, []byte(report), 0o644); err != nil {
		return enrichment.Stats{}, 0, fmt.Errorf("write report: %w", err)
	}
	if cfg.StatsOutPath != "" {
		if err := fileutils.WriteJSONFileAtomic(cfg.StatsOutPath, stats, cfg.Pretty); err != nil {
			return enrichment.Stats{}, 0, err
		}
	}
	if cfg.QueueOutPath != "" {
		if err := enrichment.WriteResults(cfg.QueueOutPath, queueColumns, queue); err != nil {
			return enrichment.Stats{}, 0, err
		}
	}
	return stats, len(queue), nil
}
