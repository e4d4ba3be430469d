package enrichment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment/fileutils"
)

// Classifier assigns intent, sentiment and priority to one message text. Implementations must
// never fail: every error path returns DegradedResult with a diagnostic explanation.
type Classifier interface {
	Classify(ctx context.Context, text string) ClassifierResult
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) ClassifierResult

func (f ClassifierFunc) Classify(ctx context.Context, text string) ClassifierResult {
	return f(ctx, text)
}

// OfflineClassifier never calls out; every message takes the degraded path and the final
// record rests on lexical signals alone.
type OfflineClassifier struct{}

func (OfflineClassifier) Classify(context.Context, string) ClassifierResult {
	return DegradedResult("classification disabled")
}

const rawPreviewChars = 120

// ErrorExplanation is the explanation recorded when the classifier call itself failed.
func ErrorExplanation(err error) string {
	return "classifier error: " + err.Error()
}

// classifierReply is the wire shape. Pointers distinguish missing fields from zero values.
type classifierReply struct {
	Intent        *string         `json:"intent"`
	ComplaintType *string         `json:"complaint_type"`
	Sentiment     *string         `json:"sentiment"`
	Sarcasm       json.RawMessage `json:"sarcasm"`
	Priority      *string         `json:"priority"`
	Explanation   *string         `json:"explanation"`
}

// ParseClassifierResponse turns a raw reply into a ClassifierResult. A reply that is not a JSON
// object, directly or between its outermost braces, degrades entirely; there is no partial parse.
func ParseClassifierResponse(raw string) ClassifierResult {
	var reply classifierReply
	if err := fileutils.DecodeModelJSON(raw, &reply); err != nil {
		return DegradedResult("json parse failed, raw response: " + fileutils.Truncate(raw, rawPreviewChars))
	}

	res := DegradedResult("")
	res.Degraded = false
	if reply.Intent != nil {
		res.Intent = parseIntent(*reply.Intent)
	}
	if reply.ComplaintType != nil {
		if ct := strings.ToLower(strings.TrimSpace(*reply.ComplaintType)); ct != "" {
			res.ComplaintType = ct
		}
	}
	if reply.Sentiment != nil {
		res.Sentiment = parseSentiment(*reply.Sentiment)
	}
	res.Sarcasm = parseSarcasm(reply.Sarcasm)
	if reply.Priority != nil {
		res.Priority = strings.TrimSpace(*reply.Priority)
	}
	if reply.Explanation != nil {
		res.Explanation = strings.TrimSpace(*reply.Explanation)
	}
	return res
}

func parseIntent(s string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownIntents[in]; ok {
		return in
	}
	return IntentOther
}

func parseSentiment(s string) Sentiment {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentNegative, SentimentNeutral, SentimentPositive:
		return v
	default:
		return SentimentNeutral
	}
}

func parseSarcasm(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseFlag(s)
	}
	return false
}
