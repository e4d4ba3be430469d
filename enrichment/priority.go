package enrichment

import (
	"fmt"
	"sort"
	"strings"
)

// Priority is a ticket urgency level. The zero value is PriorityNone.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = [...]string{"none", "low", "medium", "high", "critical"}

// Priorities lists every level from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

func (p Priority) String() string {
	if p < PriorityNone || p > PriorityCritical {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority maps a level name to its Priority. Unknown names report ok=false and PriorityNone.
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range priorityNames {
		if s == name {
			return Priority(i), true
		}
	}
	return PriorityNone, false
}

// Bump raises p by n steps, clamped to PriorityCritical. Negative n leaves p unchanged.
func (p Priority) Bump(n int) Priority {
	if n <= 0 {
		return p
	}
	if p >= PriorityCritical || n >= int(PriorityCritical-p) {
		return max(p, PriorityCritical)
	}
	return p + Priority(n)
}

// ComparePriority returns -1, 0 or +1 as a is below, equal to or above b.
func ComparePriority(a, b Priority) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	if p < PriorityNone || p > PriorityCritical {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, ok := ParsePriority(string(b))
	if !ok {
		return fmt.Errorf("unknown priority %q", string(b))
	}
	*p = v
	return nil
}

// SortQueue orders results for the agent queue: highest final priority first, then oldest
// message first. Ties keep input order.
func SortQueue(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		pi, pj := results[i].Record.Priority, results[j].Record.Priority
		if pi != pj {
			return pi > pj
		}
		return results[i].Message.CreatedAt.Before(results[j].Message.CreatedAt)
	})
}

// FilterMinPriority keeps results whose final priority is at least min.
func FilterMinPriority(results []Result, min Priority) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Record.Priority >= min {
			out = append(out, r)
		}
	}
	return out
}
