package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fixedClassifier(calls *int64) ClassifierFunc {
	return func(_ context.Context, text string) ClassifierResult {
		atomic.AddInt64(calls, 1)
		if strings.Contains(strings.ToLower(text), "panne") {
			return classifierResult(IntentComplaint, "network_outage", SentimentNegative, false, "medium")
		}
		return classifierResult(IntentThanks, NoComplaint, SentimentPositive, false, "none")
	}
}

func TestPipeline_PreservesOrder(t *testing.T) {
	t.Parallel()

	var calls int64
	p, err := NewPipeline(nil, fixedClassifier(&calls), Options{Concurrency: 3})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	msgs := make([]Message, 20)
	for i := range msgs {
		text := fmt.Sprintf("merci %d", i)
		if i%3 == 0 {
			text = fmt.Sprintf("panne totale %d, c'est urgent", i)
		}
		msgs[i] = Message{ID: fmt.Sprint(i), Text: text}
	}
	results, err := p.Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != len(msgs) {
		t.Fatalf("len=%d, want %d", len(results), len(msgs))
	}
	for i, r := range results {
		if r.Message.ID != msgs[i].ID {
			t.Fatalf("results[%d].ID=%s", i, r.Message.ID)
		}
		if i%3 == 0 {
			if r.Record.Intent != IntentComplaint || r.Record.Priority != PriorityHigh {
				t.Fatalf("results[%d].Record=%+v", i, r.Record)
			}
		} else if r.Record.Intent != IntentThanks || r.Record.Priority != PriorityNone {
			t.Fatalf("results[%d].Record=%+v", i, r.Record)
		}
	}
	if calls != int64(len(msgs)) {
		t.Fatalf("calls=%d", calls)
	}
}

func TestPipeline_TimeoutDegradesOneMessage(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	cls := ClassifierFunc(func(_ context.Context, text string) ClassifierResult {
		if strings.Contains(text, "lent") {
			<-release
		}
		return classifierResult(IntentQuestion, NoComplaint, SentimentNeutral, false, "none")
	})
	p, err := NewPipeline(nil, cls, Options{CallTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	results, err := p.Run(context.Background(), []Message{
		{ID: "a", Text: "comment activer la 5g ?"},
		{ID: "b", Text: "réseau lent"},
		{ID: "c", Text: "où trouver ma facture ?"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	slow := results[1]
	if !slow.Classification.Degraded || !strings.HasPrefix(slow.Classification.Explanation, "classifier error: ") {
		t.Fatalf("slow classification=%+v", slow.Classification)
	}
	if slow.Record.Intent != IntentOther || slow.Record.ComplaintType != NoComplaint {
		t.Fatalf("slow record=%+v", slow.Record)
	}
	if slow.Signals.SentimentScore != 1 {
		t.Fatalf("lexical signals lost on timeout: %+v", slow.Signals)
	}
	for _, i := range []int{0, 2} {
		if results[i].Classification.Degraded || results[i].Record.Intent != IntentQuestion {
			t.Fatalf("results[%d]=%+v", i, results[i].Classification)
		}
	}
}

func TestPipeline_PanicIsolated(t *testing.T) {
	t.Parallel()

	cls := ClassifierFunc(func(_ context.Context, text string) ClassifierResult {
		if strings.Contains(text, "boom") {
			panic("classifier exploded")
		}
		return classifierResult(IntentPraise, NoComplaint, SentimentPositive, false, "none")
	})
	p, err := NewPipeline(nil, cls, Options{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	results, err := p.Run(context.Background(), []Message{
		{ID: "1", Text: "super service"},
		{ID: "2", Text: "boom, inadmissible, je vais résilier"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	bad := results[1]
	if !strings.HasPrefix(bad.Classification.Explanation, "pipeline error: ") {
		t.Fatalf("Explanation=%q", bad.Classification.Explanation)
	}
	want := ReconciledRecord{Intent: IntentOther, ComplaintType: NoComplaint, Priority: PriorityNone, Sentiment: SentimentNeutral}
	if bad.Record != want {
		t.Fatalf("Record=%+v, want fully degraded", bad.Record)
	}
	if results[0].Record.Intent != IntentPraise {
		t.Fatalf("neighbour affected: %+v", results[0].Record)
	}
}

func TestPipeline_CapAndScreening(t *testing.T) {
	t.Parallel()

	var calls int64
	p, err := NewPipeline(nil, fixedClassifier(&calls), Options{
		Concurrency:   2,
		MaxClassified: 2,
		Screening:     DefaultScreening(),
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	msgs := []Message{
		{ID: "official", Author: "Freebox", Text: "Free vous informe d'une panne"},
		{ID: "k1", Author: "a", Text: "panne freebox"},
		{ID: "rt", Author: "b", Text: "RT @free panne"},
		{ID: "k2", Author: "c", Text: "free mobile en panne"},
		{ID: "k3", Author: "d", Text: "free fibre en panne, inadmissible"},
		{ID: "blank", Author: "e", Text: "  https://t.co/x  "},
	}
	results, err := p.Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}

	reasons := map[string]string{
		"official": "classification skipped: not kept for analysis",
		"rt":       "classification skipped: not kept for analysis",
		"k3":       "classification skipped: classification cap of 2 reached",
		"blank":    "classification skipped: empty text",
	}
	for _, r := range results {
		want, skipped := reasons[r.Message.ID]
		if !skipped {
			if r.Classification.Degraded || !r.Preparation.Keep {
				t.Fatalf("%s: %+v", r.Message.ID, r)
			}
			continue
		}
		if r.Classification.Explanation != want || r.Preparation.Keep {
			t.Fatalf("%s: keep=%v explanation=%q", r.Message.ID, r.Preparation.Keep, r.Classification.Explanation)
		}
	}
	// Capped messages still get a lexical verdict.
	if results[4].Record.Intent != IntentComplaint {
		t.Fatalf("capped record=%+v", results[4].Record)
	}
}

func TestPipeline_CallTimeoutCoversRateLimiterWait(t *testing.T) {
	t.Parallel()

	var calls int64
	p, err := NewPipeline(nil, fixedClassifier(&calls), Options{
		Concurrency:       1,
		RequestsPerSecond: 0.001,
		Burst:             1,
		CallTimeout:       20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := p.Run(ctx, []Message{{ID: "1", Text: "merci"}, {ID: "2", Text: "panne"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Classification.Degraded || results[0].Record.Intent != IntentThanks {
		t.Fatalf("results[0]=%+v", results[0].Classification)
	}
	second := results[1].Classification
	if !second.Degraded || !strings.HasPrefix(second.Explanation, "classifier error: ") {
		t.Fatalf("results[1]=%+v, want a degraded limiter timeout", second)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestPipeline_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, nil, Options{}); !errors.Is(err, ErrNilClassifier) {
		t.Fatalf("err=%v", err)
	}
	if _, err := NewPipeline(nil, OfflineClassifier{}, Options{Concurrency: -1}); err == nil {
		t.Fatalf("negative concurrency accepted")
	}

	p, err := NewPipeline(nil, OfflineClassifier{}, Options{RequestsPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	res, err := p.Run(context.Background(), nil)
	if err != nil || res == nil || len(res) != 0 {
		t.Fatalf("empty batch: res=%v err=%v", res, err)
	}
	if _, err := p.Run(context.Background(), []Message{{ID: "1"}, {ID: "2", Text: "  "}}); !errors.Is(err, ErrNoText) {
		t.Fatalf("err=%v, want ErrNoText", err)
	}

	res, err = p.Run(context.Background(), []Message{{ID: "1", Text: "panne"}})
	if err != nil || len(res) != 1 || res[0].Classification.Explanation != "classification disabled" {
		t.Fatalf("offline: res=%+v err=%v", res, err)
	}
}

func TestPipeline_CancelledStillReturnsEveryMessage(t *testing.T) {
	t.Parallel()

	var calls int64
	p, err := NewPipeline(nil, fixedClassifier(&calls), Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := make([]Message, 50)
	for i := range msgs {
		msgs[i] = Message{ID: fmt.Sprint(i), Text: "panne de réseau"}
	}
	results, err := p.Run(ctx, msgs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if len(results) != len(msgs) {
		t.Fatalf("len=%d", len(results))
	}
	for i, r := range results {
		if r.Message.ID != msgs[i].ID || r.Record.Intent == "" {
			t.Fatalf("results[%d]=%+v", i, r)
		}
	}
}
