package enrichment

import (
	"testing"
)

func TestScreening_Prepare(t *testing.T) {
	t.Parallel()

	s := DefaultScreening()
	cases := []struct {
		name string
		msg  Message
		want Preparation
	}{
		{
			name: "customer original",
			msg:  Message{Author: "jdupont", Text: "Ma Freebox est en panne"},
			want: Preparation{AuthorType: AuthorCustomer, TweetType: TweetOriginal, AboutOperator: true, Keep: true},
		},
		{
			name: "official account",
			msg:  Message{Author: "@FREEBOX", Text: "Bonjour, free vous répond en DM", InReplyToID: "42"},
			want: Preparation{AuthorType: AuthorOfficial, TweetType: TweetReply, AboutOperator: true},
		},
		{
			name: "retweet prefix",
			msg:  Message{Author: "x", Text: "RT @free: nouvelle offre"},
			want: Preparation{AuthorType: AuthorCustomer, TweetType: TweetRetweet, AboutOperator: true},
		},
		{
			name: "retweet id",
			msg:  Message{Author: "x", Text: "free mobile", RetweetedID: "9", InReplyToID: "1"},
			want: Preparation{AuthorType: AuthorCustomer, TweetType: TweetRetweet, AboutOperator: true},
		},
		{
			name: "quote off topic",
			msg:  Message{Author: "x", Text: "rien à voir https://free.fr", IsQuote: true},
			want: Preparation{AuthorType: AuthorCustomer, TweetType: TweetQuote},
		},
	}
	for _, tc := range cases {
		if got := s.Prepare(tc.msg); got != tc.want {
			t.Fatalf("%s: got=%+v want=%+v", tc.name, got, tc.want)
		}
	}
}

func TestEligibleAll(t *testing.T) {
	t.Parallel()

	p := eligibleAll(Message{Text: "RT hello"})
	if !p.Keep || !p.AboutOperator || p.TweetType != TweetRetweet {
		t.Fatalf("p=%+v", p)
	}
}
