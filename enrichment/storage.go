package enrichment

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment/fileutils"
)

var (
	// ErrNoTextColumn means the input has neither a full_text nor a text column.
	ErrNoTextColumn = errors.New("input has no full_text or text column")
	// ErrNotEnriched means a file handed to LoadResults lacks the final_* columns.
	ErrNotEnriched = errors.New("input is not an enriched file")
)

var createdAtLayouts = []string{
	time.RubyDate,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// columns resolves header names to indexes, tolerating ragged rows.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		if _, dup := c[h]; !dup {
			c[h] = i
		}
	}
	return c
}

func (c columns) first(names ...string) (string, bool) {
	for _, n := range names {
		if _, ok := c[n]; ok {
			return n, true
		}
	}
	return "", false
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: missing header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		h := header[i]
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	return header, nil
}

// LoadMessages reads raw messages from CSV and returns them with the trimmed header.
func LoadMessages(r io.Reader) ([]Message, []string, error) {
	cr := newCSVReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	cols := newColumns(header)
	textCol, ok := cols.first("full_text", "text")
	if !ok {
		return nil, nil, ErrNoTextColumn
	}

	var msgs []Message
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", line, err)
		}
		msgs = append(msgs, messageFromRow(cols, header, row, textCol))
	}
	return msgs, header, nil
}

// LoadMessagesFile opens path and calls LoadMessages.
func LoadMessagesFile(path string) ([]Message, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadMessages(f)
}

func messageFromRow(cols columns, header []string, row []string, textCol string) Message {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			fields[h] = row[i]
		}
	}

	pick := func(names ...string) string {
		if n, ok := cols.first(names...); ok {
			return strings.TrimSpace(cols.get(row, n))
		}
		return ""
	}

	m := Message{
		ID:          pick("id", "id_str", "tweet_id"),
		Text:        cols.get(row, textCol),
		Author:      pick("screen_name", "user_screen_name"),
		InReplyToID: pick("in_reply_to_status_id", "in_reply_to"),
		RetweetedID: pick("retweeted_status_id", "retweeted_status"),
		IsQuote:     ParseFlag(pick("is_quote_status")),
		Fields:      fields,
	}
	if m.InReplyToID == "nan" {
		m.InReplyToID = ""
	}
	if m.RetweetedID == "nan" {
		m.RetweetedID = ""
	}
	m.CreatedAt = parseCreatedAt(pick("created_at"))
	return m
}

func parseCreatedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// EncodeCSV renders header plus one row per result.
func EncodeCSV(header []string, results []Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range results {
		if err := w.Write(r.Row(header)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteResults writes results atomically as CSV under header.
func WriteResults(path string, header []string, results []Result) error {
	b, err := EncodeCSV(header, results)
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := fileutils.WriteFileAtomicSameDir(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadResults reads an enriched CSV back. Passthrough columns repopulate the message.
func LoadResults(r io.Reader) ([]Result, error) {
	cr := newCSVReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	cols := newColumns(header)
	if _, ok := cols[ColFinalIntent]; !ok {
		return nil, ErrNotEnriched
	}
	textCol, _ := cols.first("full_text", "text", ColTextClean)

	var out []Result
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		m := messageFromRow(cols, header, row, textCol)
		out = append(out, resultFromValues(m, func(col string) string { return cols.get(row, col) }))
	}
	return out, nil
}

// LoadResultsFile opens path and calls LoadResults.
func LoadResultsFile(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadResults(f)
}
