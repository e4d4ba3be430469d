package enrichment

import (
	"strconv"
	"strings"
)

// Derived column names, in output order after the passthrough columns.
const (
	ColTextClean          = "text_clean"
	ColAuthorType         = "author_type"
	ColTweetType          = "tweet_type"
	ColAboutOperator      = "is_about_free"
	ColKeep               = "keep_for_analysis"
	ColSentimentScore     = "nlp_sentiment_score"
	ColProbableComplaint  = "nlp_probable_complaint"
	ColHasUrgency         = "nlp_has_urgency"
	ColCancellationRisk   = "nlp_has_resiliation_risk"
	ColSarcasmHint        = "nlp_sarcasm_hint"
	ColTopics             = "nlp_topics"
	ColIntent             = "intent"
	ColComplaintType      = "complaint_type"
	ColSentiment          = "sentiment"
	ColSarcasm            = "sarcasm"
	ColPriority           = "priority"
	ColExplanation        = "llm_explanation"
	ColDegraded           = "llm_degraded"
	ColFinalIntent        = "final_intent"
	ColFinalComplaintType = "final_complaint_type"
	ColFinalPriority      = "final_priority"
	ColFinalSentiment     = "final_sentiment"
	ColFinalSarcasm       = "final_sarcasm"
)

// PreparedColumns are the screening columns written to the prepared file.
var PreparedColumns = []string{ColTextClean, ColAuthorType, ColTweetType, ColAboutOperator, ColKeep}

// EnrichedColumns are every derived column of the enriched file.
var EnrichedColumns = append(append([]string(nil), PreparedColumns...),
	ColSentimentScore, ColProbableComplaint, ColHasUrgency, ColCancellationRisk, ColSarcasmHint, ColTopics,
	ColIntent, ColComplaintType, ColSentiment, ColSarcasm, ColPriority, ColExplanation, ColDegraded,
	ColFinalIntent, ColFinalComplaintType, ColFinalPriority, ColFinalSentiment, ColFinalSarcasm,
)

const topicSeparator = ","

// FormatFlag renders a boolean the way downstream consumers expect it.
func FormatFlag(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseFlag accepts "true" or "1" in any case; everything else is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true
	default:
		return false
	}
}

// Header returns passthrough followed by the derived columns, skipping passthrough names that a
// derived column would shadow.
func Header(passthrough []string, derived []string) []string {
	out := make([]string, 0, len(passthrough)+len(derived))
	shadow := make(map[string]struct{}, len(derived))
	for _, c := range derived {
		shadow[c] = struct{}{}
	}
	for _, c := range passthrough {
		if _, ok := shadow[c]; !ok {
			out = append(out, c)
		}
	}
	return append(out, derived...)
}

// Values returns the derived column values of r keyed by column name.
func (r Result) Values() map[string]string {
	return map[string]string{
		ColTextClean:          r.CleanText,
		ColAuthorType:         string(r.Preparation.AuthorType),
		ColTweetType:          string(r.Preparation.TweetType),
		ColAboutOperator:      FormatFlag(r.Preparation.AboutOperator),
		ColKeep:               FormatFlag(r.Preparation.Keep),
		ColSentimentScore:     strconv.Itoa(r.Signals.SentimentScore),
		ColProbableComplaint:  FormatFlag(r.Signals.ProbableComplaint),
		ColHasUrgency:         FormatFlag(r.Signals.HasUrgency),
		ColCancellationRisk:   FormatFlag(r.Signals.HasCancellationRisk),
		ColSarcasmHint:        FormatFlag(r.Signals.SarcasmHint),
		ColTopics:             strings.Join(r.Signals.Topics, topicSeparator),
		ColIntent:             string(r.Classification.Intent),
		ColComplaintType:      r.Classification.ComplaintType,
		ColSentiment:          string(r.Classification.Sentiment),
		ColSarcasm:            FormatFlag(r.Classification.Sarcasm),
		ColPriority:           r.Classification.Priority,
		ColExplanation:        r.Classification.Explanation,
		ColDegraded:           FormatFlag(r.Classification.Degraded),
		ColFinalIntent:        string(r.Record.Intent),
		ColFinalComplaintType: r.Record.ComplaintType,
		ColFinalPriority:      r.Record.Priority.String(),
		ColFinalSentiment:     string(r.Record.Sentiment),
		ColFinalSarcasm:       FormatFlag(r.Record.Sarcasm),
	}
}

// Row lays r out under header. Passthrough columns come from the message's input fields; "id"
// and "screen_name" fall back to the resolved ID and Author when the input named them otherwise.
func (r Result) Row(header []string) []string {
	derived := r.Values()
	row := make([]string, len(header))
	for i, col := range header {
		if v, ok := derived[col]; ok {
			row[i] = v
			continue
		}
		if v, ok := r.Message.Fields[col]; ok {
			row[i] = v
			continue
		}
		switch col {
		case "id":
			row[i] = r.Message.ID
		case "screen_name":
			row[i] = r.Message.Author
		}
	}
	return row
}

// resultFromValues rebuilds the derived parts of a Result from a flat row.
func resultFromValues(m Message, get func(string) string) Result {
	score, _ := strconv.Atoi(strings.TrimSpace(get(ColSentimentScore)))
	var topics []string
	for _, t := range strings.Split(get(ColTopics), topicSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	finalPriority, _ := ParsePriority(get(ColFinalPriority))

	return Result{
		Message:   m,
		CleanText: get(ColTextClean),
		Preparation: Preparation{
			AuthorType:    AuthorType(get(ColAuthorType)),
			TweetType:     TweetType(get(ColTweetType)),
			AboutOperator: ParseFlag(get(ColAboutOperator)),
			Keep:          ParseFlag(get(ColKeep)),
		},
		Signals: LexicalSignals{
			SentimentScore:      score,
			ProbableComplaint:   ParseFlag(get(ColProbableComplaint)),
			HasUrgency:          ParseFlag(get(ColHasUrgency)),
			HasCancellationRisk: ParseFlag(get(ColCancellationRisk)),
			SarcasmHint:         ParseFlag(get(ColSarcasmHint)),
			Topics:              topics,
		},
		Classification: ClassifierResult{
			Intent:        Intent(get(ColIntent)),
			ComplaintType: get(ColComplaintType),
			Sentiment:     Sentiment(get(ColSentiment)),
			Sarcasm:       ParseFlag(get(ColSarcasm)),
			Priority:      get(ColPriority),
			Explanation:   get(ColExplanation),
			Degraded:      ParseFlag(get(ColDegraded)),
		},
		Record: ReconciledRecord{
			Intent:        Intent(get(ColFinalIntent)),
			ComplaintType: get(ColFinalComplaintType),
			Priority:      finalPriority,
			Sentiment:     Sentiment(get(ColFinalSentiment)),
			Sarcasm:       ParseFlag(get(ColFinalSarcasm)),
		},
	}
}
