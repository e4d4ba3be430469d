package enrichment

// Reconcile merges lexical evidence with the classifier verdict into the final record.
// It is pure; the same inputs always give the same record.
func Reconcile(sig LexicalSignals, cls ClassifierResult) ReconciledRecord {
	var rec ReconciledRecord

	// Intent.
	rec.Intent = cls.Intent
	if cls.Intent != IntentComplaint && sig.ProbableComplaint && sig.SentimentScore >= 2 {
		rec.Intent = IntentComplaint
	}
	if cls.Intent == IntentOther && sig.SentimentScore >= 2 {
		rec.Intent = IntentComplaint
	}
	isComplaint := rec.Intent == IntentComplaint

	// Complaint type.
	rec.ComplaintType = NoComplaint
	if isComplaint {
		rec.ComplaintType = cls.ComplaintType
		if rec.ComplaintType == "" {
			rec.ComplaintType = NoComplaint
		}
		if (rec.ComplaintType == NoComplaint || rec.ComplaintType == OtherComplaint) && len(sig.Topics) > 0 {
			rec.ComplaintType = sig.Topics[0]
		}
	}

	// Sarcasm and sentiment.
	rec.Sarcasm = cls.Sarcasm || sig.SarcasmHint
	rec.Sentiment = cls.Sentiment
	if rec.Sarcasm && cls.Sentiment == SentimentPositive {
		rec.Sentiment = SentimentNegative
	}

	// Priority.
	rec.Priority = PriorityNone
	if isComplaint {
		rec.Priority = escalate(sig, cls.Priority)
	}
	return rec
}

// escalate applies the cancellation floor, then one step for urgency and one for a high score.
func escalate(sig LexicalSignals, classifierPriority string) Priority {
	p, _ := ParsePriority(classifierPriority)
	if sig.HasCancellationRisk && p < PriorityHigh {
		p = PriorityHigh
	}
	if sig.HasUrgency {
		p = p.Bump(1)
	}
	if sig.SentimentScore >= 3 {
		p = p.Bump(1)
	}
	return p
}
