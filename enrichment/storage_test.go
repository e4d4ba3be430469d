package enrichment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleCSV = "\ufeffid_str, screen_name ,created_at,full_text,in_reply_to_status_id,lang\n" +
	"1,jdupont,Wed Oct 10 20:19:24 +0000 2018,\"Fibre coupée, inadmissible, je vais résilier @free\",nan,fr\n" +
	"2,Freebox,2018-10-10 21:00:00,\"Bonjour, free vous répond\",1,fr\n" +
	"3,marie,,merci free… vraiment top\n"

func TestLoadMessages_Columns(t *testing.T) {
	t.Parallel()

	msgs, header, err := LoadMessages(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if header[0] != "id_str" || header[1] != "screen_name" {
		t.Fatalf("header=%q", header)
	}
	if len(msgs) != 3 {
		t.Fatalf("len=%d", len(msgs))
	}

	m := msgs[0]
	if m.ID != "1" || m.Author != "jdupont" || m.InReplyToID != "" {
		t.Fatalf("msgs[0]=%+v", m)
	}
	if want := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC); !m.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt=%v", m.CreatedAt)
	}
	if m.Text != "Fibre coupée, inadmissible, je vais résilier @free" || m.Fields["lang"] != "fr" {
		t.Fatalf("msgs[0]=%+v", m)
	}
	if msgs[1].InReplyToID != "1" || msgs[1].CreatedAt.IsZero() {
		t.Fatalf("msgs[1]=%+v", msgs[1])
	}
	if !msgs[2].CreatedAt.IsZero() || msgs[2].Fields["lang"] != "" {
		t.Fatalf("short row: %+v", msgs[2])
	}
}

func TestLoadMessages_Errors(t *testing.T) {
	t.Parallel()

	if _, _, err := LoadMessages(strings.NewReader("id,body\n1,x\n")); !errors.Is(err, ErrNoTextColumn) {
		t.Fatalf("err=%v, want ErrNoTextColumn", err)
	}
	if _, _, err := LoadMessages(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
	msgs, _, err := LoadMessages(strings.NewReader("text\n"))
	if err != nil || len(msgs) != 0 {
		t.Fatalf("header only: msgs=%v err=%v", msgs, err)
	}
}

func TestWriteResults_RoundTrip(t *testing.T) {
	t.Parallel()

	msgs, header, err := LoadMessages(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	p, err := NewPipeline(nil, OfflineClassifier{}, Options{Screening: DefaultScreening()})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	results, err := p.Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "enriched.csv")
	if err := WriteResults(path, Header(header, EnrichedColumns), results); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	first := strings.SplitN(string(data), "\n", 2)[0]
	if !strings.HasPrefix(first, "id_str,screen_name,created_at,full_text,in_reply_to_status_id,lang,text_clean,") ||
		!strings.HasSuffix(first, ",final_sarcasm") {
		t.Fatalf("header=%q", first)
	}

	back, err := LoadResultsFile(path)
	if err != nil {
		t.Fatalf("LoadResultsFile: %v", err)
	}
	if len(back) != len(results) {
		t.Fatalf("len=%d", len(back))
	}
	for i := range results {
		if back[i].Record != results[i].Record {
			t.Fatalf("Record[%d]=%+v, want %+v", i, back[i].Record, results[i].Record)
		}
		if !reflect.DeepEqual(back[i].Signals, results[i].Signals) {
			t.Fatalf("Signals[%d]=%+v, want %+v", i, back[i].Signals, results[i].Signals)
		}
		if back[i].Preparation != results[i].Preparation || back[i].Classification != results[i].Classification {
			t.Fatalf("row %d: %+v", i, back[i])
		}
		if back[i].Message.Text != msgs[i].Text {
			t.Fatalf("Text[%d]=%q", i, back[i].Message.Text)
		}
	}

	if got := back[0].Record; got.Intent != IntentComplaint || got.Priority != PriorityHigh {
		t.Fatalf("back[0].Record=%+v", got)
	}
	if back[1].Preparation.AuthorType != AuthorOfficial {
		t.Fatalf("back[1].Preparation=%+v", back[1].Preparation)
	}
}

func TestLoadResults_RequiresFinalColumns(t *testing.T) {
	t.Parallel()

	if _, err := LoadResults(strings.NewReader("text,intent\nx,other\n")); !errors.Is(err, ErrNotEnriched) {
		t.Fatalf("err=%v, want ErrNotEnriched", err)
	}
}

func TestHeader_SkipsShadowedColumns(t *testing.T) {
	t.Parallel()

	got := Header([]string{"id", "intent", "text"}, []string{"intent", "final_intent"})
	want := []string{"id", "text", "intent", "final_intent"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Header=%v", got)
	}
}

func TestRow_FallsBackToResolvedIdentity(t *testing.T) {
	t.Parallel()

	r := Result{Message: Message{
		ID:     "42",
		Author: "jdupont",
		Fields: map[string]string{"id_str": "42", "user_screen_name": "jdupont", "lang": "fr"},
	}}
	got := r.Row([]string{"id", "screen_name", "lang", "missing"})
	want := []string{"42", "jdupont", "fr", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Row=%q, want %q", got, want)
	}

	r.Message.Fields["id"] = "from-input"
	if got := r.Row([]string{"id"}); got[0] != "from-input" {
		t.Fatalf("Row=%q, input column should win", got)
	}
}
