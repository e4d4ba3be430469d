package enrichment

import (
	"sync"

	"github.com/cloudflare/ahocorasick"
)

type category uint8

const (
	catStrongNegative category = iota
	catWeakNegative
	catPraise
	catComplaint
	catNotWorking
	catUrgency
	catCancellation
	catSarcasmEllipsisCue
	catSarcasmNegativeCue
	catEllipsis
	numCategories
)

// keywordEntry records which lexicon lists a normalized keyword belongs to.
type keywordEntry struct {
	categories [numCategories]bool
	topics     []int
}

// Extractor scans normalized text against a Lexicon with a single Aho-Corasick pass.
type Extractor struct {
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	keywords []string
	entries  []keywordEntry
	topics   []string
}

// NewExtractor compiles lex. Keywords are folded with NormalizeLexical, so accented and
// unaccented spellings of the same word collapse to one entry.
func NewExtractor(lex Lexicon) *Extractor {
	e := &Extractor{}
	index := make(map[string]int)

	entryFor := func(kw string) *keywordEntry {
		normalized := NormalizeLexical(kw)
		if normalized == "" {
			return nil
		}
		i, ok := index[normalized]
		if !ok {
			i = len(e.keywords)
			index[normalized] = i
			e.keywords = append(e.keywords, normalized)
			e.entries = append(e.entries, keywordEntry{})
		}
		return &e.entries[i]
	}
	add := func(c category, kws []string) {
		for _, kw := range kws {
			if entry := entryFor(kw); entry != nil {
				entry.categories[c] = true
			}
		}
	}

	add(catStrongNegative, lex.StrongNegative)
	add(catWeakNegative, lex.WeakNegative)
	add(catPraise, lex.Praise)
	add(catComplaint, lex.Complaint)
	add(catNotWorking, lex.NotWorking)
	add(catUrgency, lex.Urgency)
	add(catCancellation, lex.Cancellation)
	add(catSarcasmEllipsisCue, lex.Sarcasm.WithEllipsis)
	add(catSarcasmNegativeCue, lex.Sarcasm.WithNegative)
	for _, marker := range lex.Sarcasm.Ellipsis {
		// Markers are punctuation; NormalizeLexical leaves them intact.
		if entry := entryFor(marker); entry != nil {
			entry.categories[catEllipsis] = true
		}
	}

	for ti, topic := range lex.Topics {
		e.topics = append(e.topics, topic.Tag)
		for _, kw := range topic.Keywords {
			entry := entryFor(kw)
			if entry == nil {
				continue
			}
			if n := len(entry.topics); n == 0 || entry.topics[n-1] != ti {
				entry.topics = append(entry.topics, ti)
			}
		}
	}

	if len(e.keywords) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.keywords)
	}
	return e
}

// hits returns the distinct keyword indexes found in text. The matcher keeps per-call
// bookkeeping, so access is serialized.
func (e *Extractor) hits(text string) []int {
	if e.matcher == nil || text == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matcher.Match([]byte(text))
}

// Extract derives LexicalSignals from text already passed through NormalizeLexical.
// Each lexicon entry counts at most once no matter how often it occurs.
func (e *Extractor) Extract(normalized string) LexicalSignals {
	var counts [numCategories]int
	topicHit := make([]bool, len(e.topics))
	seen := make(map[int]struct{})

	for _, idx := range e.hits(normalized) {
		if idx < 0 || idx >= len(e.entries) {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		entry := e.entries[idx]
		for c := category(0); c < numCategories; c++ {
			if entry.categories[c] {
				counts[c]++
			}
		}
		for _, ti := range entry.topics {
			topicHit[ti] = true
		}
	}

	sig := LexicalSignals{
		SentimentScore: 2*counts[catStrongNegative] + counts[catWeakNegative] - counts[catPraise],
	}
	strong := counts[catStrongNegative] > 0
	sig.ProbableComplaint = counts[catComplaint] > 0 || sig.SentimentScore >= 2 || counts[catNotWorking] > 0
	sig.HasUrgency = counts[catUrgency] > 0
	sig.HasCancellationRisk = counts[catCancellation] > 0
	sig.SarcasmHint = (counts[catSarcasmEllipsisCue] > 0 && (counts[catEllipsis] > 0 || strong)) ||
		(counts[catSarcasmNegativeCue] > 0 && strong)

	for ti, hit := range topicHit {
		if hit {
			sig.Topics = append(sig.Topics, e.topics[ti])
		}
	}
	return sig
}

// ExtractText normalizes raw text and extracts its signals.
func (e *Extractor) ExtractText(raw string) LexicalSignals {
	return e.Extract(NormalizeLexical(raw))
}

// Topics returns the topic tags in scan order.
func (e *Extractor) Topics() []string {
	return append([]string(nil), e.topics...)
}
