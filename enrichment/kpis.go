package enrichment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/tweet-triage/enrichment/fileutils"
)

// Count is one labelled bucket of a breakdown.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats are the batch KPIs shown to analysts.
type Stats struct {
	Total               int `json:"total"`
	FromOfficial        int `json:"from_official"`
	RepliesFromOfficial int `json:"replies_from_official"`
	Retweets            int `json:"retweets"`
	Replies             int `json:"replies"`
	Quotes              int `json:"quotes"`

	Kept             int `json:"kept_for_analysis"`
	Dropped          int `json:"dropped_total"`
	DroppedOfficial  int `json:"dropped_official_author"`
	DroppedRetweets  int `json:"dropped_retweets"`
	DroppedNotAbout  int `json:"not_about_operator"`
	Classified       int `json:"classified"`
	DegradedVerdicts int `json:"degraded_verdicts"`

	Complaints       int     `json:"complaints"`
	UrgentComplaints int     `json:"urgent_complaints"`
	ByIntent         []Count `json:"by_intent"`
	ComplaintsByType []Count `json:"complaints_by_type"`
	ComplaintsByPrio []Count `json:"complaints_by_priority"`
	BySentiment      []Count `json:"by_sentiment"`

	SarcasmTrue      int `json:"sarcasm_true"`
	CancellationTrue int `json:"cancellation_risk_true"`
}

// ComputeStats aggregates results. Breakdowns are sorted by count, largest first, except the
// priority breakdown which follows the priority scale from critical down.
func ComputeStats(results []Result) Stats {
	s := Stats{Total: len(results)}
	intents := map[string]int{}
	types := map[string]int{}
	sentiments := map[string]int{}
	prios := map[Priority]int{}

	for _, r := range results {
		official := r.Preparation.AuthorType == AuthorOfficial
		if official {
			s.FromOfficial++
			s.DroppedOfficial++
			if r.Message.InReplyToID != "" {
				s.RepliesFromOfficial++
			}
		}
		switch r.Preparation.TweetType {
		case TweetRetweet:
			s.Retweets++
			s.DroppedRetweets++
		case TweetReply:
			s.Replies++
		case TweetQuote:
			s.Quotes++
		}
		if r.Preparation.Keep {
			s.Kept++
		}
		if !r.Preparation.AboutOperator {
			s.DroppedNotAbout++
		}
		if r.Classification.Degraded {
			s.DegradedVerdicts++
		} else {
			s.Classified++
		}

		intents[string(r.Record.Intent)]++
		sentiments[string(r.Record.Sentiment)]++
		if r.Record.Intent == IntentComplaint {
			s.Complaints++
			types[r.Record.ComplaintType]++
			prios[r.Record.Priority]++
			if r.Record.Priority >= PriorityHigh {
				s.UrgentComplaints++
			}
		}
		if r.Record.Sarcasm {
			s.SarcasmTrue++
		}
		if r.Signals.HasCancellationRisk {
			s.CancellationTrue++
		}
	}
	s.Dropped = s.Total - s.Kept

	s.ByIntent = sortedCounts(intents)
	s.ComplaintsByType = sortedCounts(types)
	s.BySentiment = sortedCounts(sentiments)
	ps := Priorities()
	for i := len(ps) - 1; i >= 0; i-- {
		if n := prios[ps[i]]; n > 0 {
			s.ComplaintsByPrio = append(s.ComplaintsByPrio, Count{Label: ps[i].String(), Count: n})
		}
	}
	return s
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// AgentQueue returns the complaints at or above min, most urgent and oldest first.
func AgentQueue(results []Result, min Priority) []Result {
	var complaints []Result
	for _, r := range FilterMinPriority(results, min) {
		if r.Record.Intent == IntentComplaint {
			complaints = append(complaints, r)
		}
	}
	SortQueue(complaints)
	return complaints
}

const reportTextChars = 140

// BuildReport renders stats and the head of the agent queue as markdown.
func BuildReport(operator string, s Stats, queue []Result, topN int) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	section := func(title string, counts []Count) {
		if len(counts) == 0 {
			return
		}
		line("### %s", title)
		for _, c := range counts {
			line("- %s: **%d**", c.Label, c.Count)
		}
		line("")
	}

	line("# %s customer support tweet report", operator)
	line("")
	line("## 1. Volume")
	line("- Messages: **%d**", s.Total)
	line("- From official %s accounts: **%d**", operator, s.FromOfficial)
	line("- Official replies to customers: **%d**", s.RepliesFromOfficial)
	line("")
	line("## 2. Stream structure")
	line("- Retweets: **%d**", s.Retweets)
	line("- Replies: **%d**", s.Replies)
	line("- Quotes: **%d**", s.Quotes)
	line("")
	line("## 3. Filtering")
	line("- Kept for analysis: **%d**", s.Kept)
	line("- Dropped: **%d**", s.Dropped)
	line("- Dropped, official author: **%d**", s.DroppedOfficial)
	line("- Dropped, retweet: **%d**", s.DroppedRetweets)
	line("- Not about %s: **%d**", operator, s.DroppedNotAbout)
	line("- Classified: **%d** (degraded verdicts: **%d**)", s.Classified, s.DegradedVerdicts)
	line("")
	line("## 4. Intents, complaints and priorities")
	line("- Complaints: **%d** (urgent: **%d**)", s.Complaints, s.UrgentComplaints)
	line("")
	section("4.1 Final intent", s.ByIntent)
	section("4.2 Complaint type", s.ComplaintsByType)
	section("4.3 Complaint priority", s.ComplaintsByPrio)
	line("## 5. Sentiment, sarcasm and cancellation risk")
	line("")
	section("5.1 Final sentiment", s.BySentiment)
	line("- Sarcasm detected: **%d**", s.SarcasmTrue)
	line("- Cancellation risk detected: **%d**", s.CancellationTrue)
	line("")

	if topN > 0 && len(queue) > 0 {
		if len(queue) > topN {
			queue = queue[:topN]
		}
		line("## 6. Top priority complaints")
		line("")
		line("| # | priority | type | created_at | author | text |")
		line("|---|---|---|---|---|---|")
		for i, r := range queue {
			created := ""
			if !r.Message.CreatedAt.IsZero() {
				created = r.Message.CreatedAt.Format("2006-01-02 15:04")
			}
			line("| %d | %s | %s | %s | %s | %s |", i+1, r.Record.Priority, cell(r.Record.ComplaintType),
				created, cell(r.Message.Author), cell(fileutils.Truncate(r.CleanText, reportTextChars)))
		}
		line("")
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(fileutils.SanitizeNewlines(s), "|", `\|`)
}
