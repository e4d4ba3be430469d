package enrichment

import (
	"time"
)

// Message is one raw social-media post as ingested. It is never modified after loading.
type Message struct {
	ID          string
	Text        string
	Author      string
	CreatedAt   time.Time
	InReplyToID string
	RetweetedID string
	IsQuote     bool

	// Fields holds every input column by header name, for passthrough on output.
	Fields map[string]string
}

// Intent is the coarse purpose of a message.
type Intent string

const (
	IntentComplaint  Intent = "complaint"
	IntentSuggestion Intent = "suggestion"
	IntentThanks     Intent = "thanks"
	IntentQuestion   Intent = "question"
	IntentPraise     Intent = "praise"
	IntentSpam       Intent = "spam_or_irrelevant"
	IntentOther      Intent = "other"
)

var knownIntents = map[Intent]struct{}{
	IntentComplaint: {}, IntentSuggestion: {}, IntentThanks: {}, IntentQuestion: {},
	IntentPraise: {}, IntentSpam: {}, IntentOther: {},
}

// Intents lists every intent value in display order.
func Intents() []Intent {
	return []Intent{IntentComplaint, IntentSuggestion, IntentThanks, IntentQuestion, IntentPraise, IntentSpam, IntentOther}
}

// Sentiment is the polarity of a message.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Sentiments lists every Sentiment in the order the classifier is offered them.
func Sentiments() []Sentiment {
	return []Sentiment{SentimentNegative, SentimentNeutral, SentimentPositive}
}

// NoComplaint is the complaint_type used for anything that is not a categorized complaint.
const NoComplaint = "none"

// OtherComplaint is the classifier's catch-all complaint category.
const OtherComplaint = "other_complaint"

// ComplaintTypes lists the categories the external classifier is asked to choose from.
func ComplaintTypes() []string {
	return []string{
		"network_outage",
		"slow_connection",
		"mobile_issue",
		"fiber_issue",
		"tv_service_issue",
		"billing_issue",
		"customer_service_issue",
		"account_contract_issue",
		"equipment_issue",
		OtherComplaint,
		NoComplaint,
	}
}

// LexicalSignals is the heuristic evidence extracted from normalized text.
type LexicalSignals struct {
	SentimentScore      int      `json:"sentiment_score"`
	ProbableComplaint   bool     `json:"probable_complaint"`
	HasUrgency          bool     `json:"has_urgency"`
	HasCancellationRisk bool     `json:"has_cancellation_risk"`
	SarcasmHint         bool     `json:"sarcasm_hint"`
	Topics              []string `json:"topics"`
}

// ClassifierResult is the external classifier's verdict. Priority is kept as the raw string the
// classifier sent; Reconcile decides what it means.
type ClassifierResult struct {
	Intent        Intent    `json:"intent"`
	ComplaintType string    `json:"complaint_type"`
	Sentiment     Sentiment `json:"sentiment"`
	Sarcasm       bool      `json:"sarcasm"`
	Priority      string    `json:"priority"`
	Explanation   string    `json:"explanation"`

	// Degraded marks a result produced by a fallback path rather than a parsed reply.
	Degraded bool `json:"-"`
}

// DegradedResult is the fixed fallback used whenever the classifier cannot be trusted.
func DegradedResult(explanation string) ClassifierResult {
	return ClassifierResult{
		Intent:        IntentOther,
		ComplaintType: NoComplaint,
		Sentiment:     SentimentNeutral,
		Sarcasm:       false,
		Priority:      PriorityNone.String(),
		Explanation:   explanation,
		Degraded:      true,
	}
}

// ReconciledRecord is the final decision for one message.
type ReconciledRecord struct {
	Intent        Intent    `json:"final_intent"`
	ComplaintType string    `json:"final_complaint_type"`
	Priority      Priority  `json:"final_priority"`
	Sentiment     Sentiment `json:"final_sentiment"`
	Sarcasm       bool      `json:"final_sarcasm"`
}

// Result is everything the pipeline derived for one message, in input order.
type Result struct {
	Message        Message
	Preparation    Preparation
	CleanText      string
	Signals        LexicalSignals
	Classification ClassifierResult
	Record         ReconciledRecord
}
