package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment"
)

// classification is the strict response schema sent to the model. The enum values come from
// the enrichment vocabulary in JSONSchemaExtend.
type classification struct {
	Intent        string `json:"intent"`
	ComplaintType string `json:"complaint_type"`
	Sentiment     string `json:"sentiment"`
	Sarcasm       bool   `json:"sarcasm"`
	Priority      string `json:"priority"`
	Explanation   string `json:"explanation" jsonschema:"description=One short sentence justifying the classification"`
}

func (classification) JSONSchemaExtend(s *jsonschema.Schema) {
	setEnum(s, "intent", intentNames())
	setEnum(s, "complaint_type", enrichment.ComplaintTypes())
	setEnum(s, "sentiment", sentimentNames())
	setEnum(s, "priority", priorityNames())
}

func setEnum(s *jsonschema.Schema, property string, values []string) {
	prop, ok := s.Properties.Get(property)
	if !ok {
		return
	}
	prop.Enum = make([]any, len(values))
	for i, v := range values {
		prop.Enum[i] = v
	}
}

func intentNames() []string {
	var out []string
	for _, in := range enrichment.Intents() {
		out = append(out, string(in))
	}
	return out
}

func sentimentNames() []string {
	var out []string
	for _, s := range enrichment.Sentiments() {
		out = append(out, string(s))
	}
	return out
}

func priorityNames() []string {
	var out []string
	for _, p := range enrichment.Priorities() {
		out = append(out, p.String())
	}
	return out
}

// Config configures a Classifier.
type Config struct {
	Model       string
	Temperature float64
	// MaxTokens bounds the reply. 0 leaves it to the service.
	MaxTokens int64
	// Timeout bounds each attempt. 0 = no per-attempt bound.
	Timeout time.Duration
	// Instructions is the system prompt. Empty uses DefaultInstructions("Free").
	Instructions string
	// StructuredOutput requests strict JSON schema output. Disable for endpoints without it.
	StructuredOutput bool
	Retry            RetryPolicy
	// BreakerFailures is the consecutive failure count that opens the breaker. 0 disables it.
	BreakerFailures int
	BreakerCooldown time.Duration
	Logger          *zap.Logger
}

// DefaultConfig matches the batch enricher defaults.
func DefaultConfig() Config {
	return Config{
		Model:            "gpt-4o-mini",
		Temperature:      0.1,
		MaxTokens:        300,
		Timeout:          30 * time.Second,
		StructuredOutput: true,
		Retry:            DefaultRetryPolicy(),
		BreakerFailures:  5,
		BreakerCooldown:  30 * time.Second,
	}
}

// Classifier is an enrichment.Classifier backed by an OpenAI-compatible chat completion endpoint.
type Classifier struct {
	completer    ChatCompleter
	cfg          Config
	schema       map[string]interface{}
	instructions string
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

var _ enrichment.Classifier = (*Classifier)(nil)

// NewClassifier validates cfg and wires the breaker.
func NewClassifier(completer ChatCompleter, cfg Config) (*Classifier, error) {
	if completer == nil {
		return nil, errors.New("provider: nil completer")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("provider: missing model")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("provider: temperature %v out of range [0,2]", cfg.Temperature)
	}
	if cfg.MaxTokens < 0 || cfg.Timeout < 0 || cfg.BreakerFailures < 0 || cfg.BreakerCooldown < 0 {
		return nil, errors.New("provider: limits must be >= 0")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	instructions := cfg.Instructions
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions("Free")
	}

	c := &Classifier{
		completer:    completer,
		cfg:          cfg,
		schema:       GenerateSchema[classification](),
		instructions: instructions,
		logger:       logger,
	}
	if cfg.BreakerFailures > 0 {
		c.breaker = newBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, logger)
	}
	return c, nil
}

func newBreaker(failures int, cooldown time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			// Our own cancellation says nothing about the service.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Classify never fails: transport, timeout, breaker and parse failures all become
// enrichment.DegradedResult with a diagnostic explanation.
func (c *Classifier) Classify(ctx context.Context, text string) enrichment.ClassifierResult {
	start := time.Now()
	raw, err := CallWithRetry(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		return c.attempt(ctx, text)
	})
	if err != nil {
		c.logger.Warn("classifier call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return enrichment.DegradedResult(enrichment.ErrorExplanation(err))
	}

	res := enrichment.ParseClassifierResponse(raw)
	if res.Degraded {
		c.logger.Warn("classifier reply unparseable", zap.Int("len", len(raw)))
	} else {
		c.logger.Debug("classified",
			zap.String("intent", string(res.Intent)),
			zap.String("priority", res.Priority),
			zap.Duration("elapsed", time.Since(start)))
	}
	return res
}

func (c *Classifier) attempt(ctx context.Context, text string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	if c.breaker == nil {
		return c.complete(ctx, text)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, text)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Classifier) complete(ctx context.Context, text string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.instructions),
			openai.UserMessage(BuildUserPrompt(text)),
		},
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.cfg.MaxTokens)
	}
	if c.cfg.StructuredOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "tweet_classification",
					Description: openai.String("Intent, complaint type, sentiment, sarcasm and priority of one customer tweet"),
					Schema:      c.schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.completer.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
