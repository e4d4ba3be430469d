package enrichment

import (
	"strings"
)

// AuthorType separates the operator's own accounts from customers.
type AuthorType string

const (
	AuthorCustomer AuthorType = "customer"
	AuthorOfficial AuthorType = "official"
)

// TweetType is the structural kind of a post.
type TweetType string

const (
	TweetOriginal TweetType = "original"
	TweetReply    TweetType = "reply"
	TweetQuote    TweetType = "quote"
	TweetRetweet  TweetType = "retweet"
)

// Preparation is the screening verdict for one message.
type Preparation struct {
	AuthorType    AuthorType
	TweetType     TweetType
	AboutOperator bool
	// Keep marks messages eligible for classification.
	Keep bool
}

// Screening decides which messages are worth sending to the classifier.
type Screening struct {
	// OfficialAccounts are matched case-insensitively, with or without a leading '@'.
	OfficialAccounts []string
	// OperatorKeywords are matched as lowercase substrings of the cleaned text.
	OperatorKeywords []string
}

// DefaultScreening targets Free / Freebox customer traffic.
func DefaultScreening() *Screening {
	return &Screening{
		OfficialAccounts: []string{"Freebox", "free", "Free_1337"},
		OperatorKeywords: []string{
			"free", "freebox", "@free", "@freebox", "free mobile", "freebox delta", "free fibre", "free fiber",
		},
	}
}

// Prepare classifies the author and structure of m and decides whether to keep it.
func (s *Screening) Prepare(m Message) Preparation {
	p := Preparation{
		AuthorType:    s.authorType(m.Author),
		TweetType:     tweetType(m),
		AboutOperator: s.aboutOperator(NormalizeBasic(m.Text)),
	}
	p.Keep = p.AuthorType == AuthorCustomer && p.TweetType != TweetRetweet && p.AboutOperator
	return p
}

func (s *Screening) authorType(handle string) AuthorType {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return AuthorCustomer
	}
	for _, acct := range s.OfficialAccounts {
		if strings.EqualFold(handle, strings.TrimPrefix(acct, "@")) {
			return AuthorOfficial
		}
	}
	return AuthorCustomer
}

func (s *Screening) aboutOperator(clean string) bool {
	t := strings.ToLower(clean)
	for _, kw := range s.OperatorKeywords {
		if kw != "" && strings.Contains(t, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func tweetType(m Message) TweetType {
	switch {
	case strings.HasPrefix(m.Text, "RT ") || strings.TrimSpace(m.RetweetedID) != "":
		return TweetRetweet
	case strings.TrimSpace(m.InReplyToID) != "":
		return TweetReply
	case m.IsQuote:
		return TweetQuote
	default:
		return TweetOriginal
	}
}

// eligibleAll is the preparation used when no screening is configured.
func eligibleAll(m Message) Preparation {
	return Preparation{
		AuthorType:    AuthorCustomer,
		TweetType:     tweetType(m),
		AboutOperator: true,
		Keep:          true,
	}
}
