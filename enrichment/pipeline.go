package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrNoText is returned when no message in the batch carries any text.
	ErrNoText = errors.New("batch has no message text")
	// ErrNilClassifier is returned by NewPipeline when no classifier is supplied.
	ErrNilClassifier = errors.New("nil classifier")
)

const defaultConcurrency = 4

// Options tunes a Pipeline. The zero value classifies every message, four at a time, with no
// rate limit.
type Options struct {
	Concurrency int
	// MaxClassified caps classifier calls to the first N eligible messages in input order. 0 = no cap.
	MaxClassified int
	// RequestsPerSecond limits classifier calls across workers. 0 = unlimited.
	RequestsPerSecond float64
	Burst             int
	// CallTimeout bounds each classifier call. 0 = no pipeline-level bound.
	CallTimeout time.Duration
	// Screening filters what is eligible for classification. nil = everything with text.
	Screening *Screening
	Logger    *zap.Logger
}

// Pipeline runs normalize, extract, classify and reconcile over a batch of messages.
type Pipeline struct {
	extractor  *Extractor
	classifier Classifier
	opts       Options
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewPipeline wires a pipeline. A nil extractor uses DefaultLexicon.
func NewPipeline(extractor *Extractor, classifier Classifier, opts Options) (*Pipeline, error) {
	if classifier == nil {
		return nil, ErrNilClassifier
	}
	if opts.Concurrency < 0 || opts.MaxClassified < 0 || opts.RequestsPerSecond < 0 || opts.Burst < 0 || opts.CallTimeout < 0 {
		return nil, errors.New("pipeline options must be >= 0")
	}
	if extractor == nil {
		extractor = NewExtractor(DefaultLexicon())
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		extractor:  extractor,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = max(1, int(opts.RequestsPerSecond))
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p, nil
}

// plan is the per-message schedule decided before any work starts.
type plan struct {
	prep       Preparation
	classify   bool
	skipReason string
}

// Run processes msgs and returns one Result per message in input order. Individual failures
// degrade that message only. If ctx is cancelled, unscheduled messages are reconciled without
// classification and ctx.Err() is returned alongside the full result set.
func (p *Pipeline) Run(ctx context.Context, msgs []Message) ([]Result, error) {
	if len(msgs) == 0 {
		return []Result{}, nil
	}
	if !anyText(msgs) {
		return nil, ErrNoText
	}

	plans := p.schedule(msgs)
	results := make([]Result, len(msgs))
	done := make([]bool, len(msgs))

	var degraded, classified int64
	start := time.Now()
	p.logger.Info("enrichment batch started",
		zap.Int("messages", len(msgs)),
		zap.Int("concurrency", p.opts.Concurrency),
		zap.Int("max_classified", p.opts.MaxClassified))

	sem := make(chan struct{}, p.opts.Concurrency)
	wg := sync.WaitGroup{}
dispatch:
	for i := range msgs {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			res := p.process(ctx, msgs[i], plans[i])
			if plans[i].classify {
				atomic.AddInt64(&classified, 1)
			}
			if res.Classification.Degraded {
				atomic.AddInt64(&degraded, 1)
			}
			results[i] = res
			done[i] = true
		}(i)
	}
	wg.Wait()

	err := ctx.Err()
	for i := range msgs {
		if done[i] {
			continue
		}
		pl := plans[i]
		pl.classify = false
		pl.skipReason = "batch cancelled"
		results[i] = p.process(context.Background(), msgs[i], pl)
		degraded++
	}

	p.logger.Info("enrichment batch finished",
		zap.Int("messages", len(msgs)),
		zap.Int64("classified", classified),
		zap.Int64("degraded", degraded),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return results, err
}

func anyText(msgs []Message) bool {
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) != "" {
			return true
		}
	}
	return false
}

// schedule screens every message and hands out classifier slots in input order, so the cap
// picks the same messages regardless of worker timing.
func (p *Pipeline) schedule(msgs []Message) []plan {
	plans := make([]plan, len(msgs))
	slots := 0
	for i, m := range msgs {
		pl := plan{prep: p.prepare(m)}
		switch {
		case strings.TrimSpace(NormalizeBasic(m.Text)) == "":
			pl.prep.Keep = false
			pl.skipReason = "empty text"
		case !pl.prep.Keep:
			pl.skipReason = "not kept for analysis"
		case p.opts.MaxClassified > 0 && slots >= p.opts.MaxClassified:
			pl.prep.Keep = false
			pl.skipReason = fmt.Sprintf("classification cap of %d reached", p.opts.MaxClassified)
		default:
			pl.classify = true
			slots++
		}
		plans[i] = pl
	}
	return plans
}

func (p *Pipeline) prepare(m Message) (prep Preparation) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("screening panicked", zap.String("id", m.ID), zap.Any("panic", r))
			prep = Preparation{AuthorType: AuthorCustomer, TweetType: TweetOriginal}
		}
	}()
	if p.opts.Screening == nil {
		return eligibleAll(m)
	}
	return p.opts.Screening.Prepare(m)
}

// process runs one message end to end. A panic anywhere gives the message the fully degraded
// record instead of taking the batch down.
func (p *Pipeline) process(ctx context.Context, m Message, pl plan) (res Result) {
	res = Result{Message: m, Preparation: pl.prep}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("message pipeline panicked", zap.String("id", m.ID), zap.Any("panic", r))
			res.Signals = LexicalSignals{}
			res.Classification = DegradedResult(fmt.Sprintf("pipeline error: %v", r))
			res.Record = Reconcile(res.Signals, res.Classification)
		}
	}()

	res.CleanText = NormalizeBasic(m.Text)
	res.Signals = p.extractor.ExtractText(m.Text)
	if pl.classify {
		res.Classification = p.classify(ctx, m.ID, res.CleanText)
	} else {
		res.Classification = DegradedResult("classification skipped: " + pl.skipReason)
	}
	res.Record = Reconcile(res.Signals, res.Classification)
	return res
}

type classifyOutcome struct {
	result   ClassifierResult
	panicked any
}

// classify waits for the rate limiter, then races the classifier against the call timeout.
// The timeout covers the limiter wait. A classifier panic is re-raised on the calling
// goroutine so process can isolate it.
func (p *Pipeline) classify(ctx context.Context, id string, text string) ClassifierResult {
	callCtx := ctx
	if p.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.CallTimeout)
		defer cancel()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(callCtx); err != nil {
			p.logger.Warn("rate limiter wait abandoned", zap.String("id", id), zap.Error(err))
			return DegradedResult(ErrorExplanation(err))
		}
	}

	out := make(chan classifyOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- classifyOutcome{panicked: r}
			}
		}()
		out <- classifyOutcome{result: p.classifier.Classify(callCtx, text)}
	}()

	select {
	case o := <-out:
		if o.panicked != nil {
			panic(o.panicked)
		}
		if o.result.Degraded {
			p.logger.Warn("classifier degraded", zap.String("id", id), zap.String("explanation", o.result.Explanation))
		}
		return o.result
	case <-callCtx.Done():
		p.logger.Warn("classifier call abandoned", zap.String("id", id), zap.Error(callCtx.Err()))
		return DegradedResult(ErrorExplanation(callCtx.Err()))
	}
}
