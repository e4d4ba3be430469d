package enrichment

import (
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestExtract_CancellationScenario(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	sig := ex.ExtractText("Plus d'internet depuis 4h, c'est inadmissible, je vais résilier!")

	if sig.SentimentScore != 2 {
		t.Fatalf("SentimentScore=%d, want 2", sig.SentimentScore)
	}
	if !sig.ProbableComplaint {
		t.Fatalf("ProbableComplaint=false")
	}
	if !sig.HasCancellationRisk {
		t.Fatalf("HasCancellationRisk=false")
	}
	if sig.HasUrgency || sig.SarcasmHint {
		t.Fatalf("HasUrgency=%v SarcasmHint=%v", sig.HasUrgency, sig.SarcasmHint)
	}
}

func TestExtract_TopicsFollowScanOrder(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	// billing appears first in the text, fiber first in scan order.
	sig := ex.ExtractText("La facture augmente et ma fibre est coupee")
	want := []string{"fiber_issue", "billing_issue"}
	if !reflect.DeepEqual(sig.Topics, want) {
		t.Fatalf("Topics=%v, want %v", sig.Topics, want)
	}
}

func TestExtract_EachEntryCountsOnce(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	once := ex.ExtractText("arnaque")
	thrice := ex.ExtractText("arnaque arnaque ARNAQUE")
	if once.SentimentScore != 2 || thrice.SentimentScore != 2 {
		t.Fatalf("once=%d thrice=%d, want 2 and 2", once.SentimentScore, thrice.SentimentScore)
	}

	// "problème" and "probleme" fold to one entry.
	if got := ex.ExtractText("Problème de débit").SentimentScore; got != 1 {
		t.Fatalf("SentimentScore=%d, want 1", got)
	}
}

func TestExtract_ScoreWeights(t *testing.T) {
	t.Parallel()

	lex := Lexicon{
		StrongNegative: []string{"horrible"},
		WeakNegative:   []string{"lent"},
		Praise:         []string{"merci"},
	}
	ex := NewExtractor(lex)
	if got := ex.ExtractText("horrible et lent, merci").SentimentScore; got != 2 {
		t.Fatalf("SentimentScore=%d, want 2+1-1=2", got)
	}
	if got := ex.ExtractText("merci").SentimentScore; got != -1 {
		t.Fatalf("SentimentScore=%d, want -1", got)
	}
}

func TestExtract_NotWorkingMakesComplaint(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	sig := ex.ExtractText("le wifi ne fonctionne pas")
	if !sig.ProbableComplaint {
		t.Fatalf("ProbableComplaint=false for a not-working phrase")
	}
}

func TestExtract_Sarcasm(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	cases := []struct {
		text string
		want bool
	}{
		{"Merci pour la coupure...", true},
		{"merci… encore une fois", true},
		{"Bravo, quelle arnaque", true},
		{"Bravo pour la 5G...", false},
		{"Merci beaucoup pour votre aide", false},
	}
	for _, tc := range cases {
		if got := ex.ExtractText(tc.text).SarcasmHint; got != tc.want {
			t.Fatalf("SarcasmHint(%q)=%v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtract_UrgencyAndEmpty(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	if !ex.ExtractText("C'est URGENT, réparez immédiatement").HasUrgency {
		t.Fatalf("HasUrgency=false")
	}
	if got := ex.Extract(""); !reflect.DeepEqual(got, LexicalSignals{}) {
		t.Fatalf("Extract(\"\")=%+v, want zero", got)
	}
	if got := NewExtractor(Lexicon{}).ExtractText("anything"); !reflect.DeepEqual(got, LexicalSignals{}) {
		t.Fatalf("empty lexicon=%+v, want zero", got)
	}
}

func TestExtract_PureAndConcurrentSafe(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(DefaultLexicon())
	texts := []string{
		"Merci Free pour la panne de fibre... je vais résilier",
		"Super la nouvelle freebox, bravo",
		"facture incorrecte, remboursement svp rapidement",
		strings.Repeat("tv replay vod ", 20),
	}
	want := make([]LexicalSignals, len(texts))
	for i, txt := range texts {
		want[i] = ex.ExtractText(txt)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, txt := range texts {
				if got := ex.ExtractText(txt); !reflect.DeepEqual(got, want[i]) {
					errs <- txt
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for txt := range errs {
		t.Fatalf("non-deterministic signals for %q", txt)
	}
}

func TestNewExtractor_Topics(t *testing.T) {
	t.Parallel()

	got := NewExtractor(DefaultLexicon()).Topics()
	want := []string{
		"fiber_issue", "mobile_issue", "network_issue", "tv_service_issue",
		"billing_issue", "customer_service_issue", "equipment_issue",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Topics=%v", got)
	}
}
