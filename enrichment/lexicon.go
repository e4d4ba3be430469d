package enrichment

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicLexicon maps one topic tag to the keywords that signal it.
type TopicLexicon struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// SarcasmCues describes the praise-with-a-negative-undertone pattern.
type SarcasmCues struct {
	// WithEllipsis cues count when the text also contains an ellipsis or a strong negative.
	WithEllipsis []string `yaml:"with_ellipsis"`
	// WithNegative cues count only when the text also contains a strong negative.
	WithNegative []string `yaml:"with_negative"`
	// Ellipsis markers are matched literally on the normalized text.
	Ellipsis []string `yaml:"ellipsis"`
}

// Lexicon is the keyword configuration for the signal extractor. Treat it as immutable once
// handed to NewExtractor.
type Lexicon struct {
	StrongNegative []string       `yaml:"strong_negative"`
	WeakNegative   []string       `yaml:"weak_negative"`
	Praise         []string       `yaml:"praise"`
	Complaint      []string       `yaml:"complaint"`
	NotWorking     []string       `yaml:"not_working"`
	Urgency        []string       `yaml:"urgency"`
	Cancellation   []string       `yaml:"cancellation"`
	Sarcasm        SarcasmCues    `yaml:"sarcasm"`
	Topics         []TopicLexicon `yaml:"topics"`
}

// DefaultLexicon returns the French telecom-support keyword set.
func DefaultLexicon() Lexicon {
	return Lexicon{
		StrongNegative: []string{
			"scandale", "honte", "honteux", "nul", "nulle", "lamentable", "inadmissible",
			"inacceptable", "catastrophique", "merde", "arnaque", "vol", "voleur",
		},
		WeakNegative: []string{
			"problème", "probleme", "bug", "lent", "lente", "déçu", "decu", "décevant",
			"marche pas", "ne marche pas", "ne fonctionne pas", "fonctionne pas",
			"panne", "coupure", "instable",
		},
		Praise: []string{
			"merci", "bravo", "top", "super", "génial", "genial", "parfait", "au top", "nickel",
		},
		Complaint: []string{
			"panne", "coupure", "incident", "bug", "debit", "débit", "connexion", "connection",
			"réseau", "reseau", "facture", "prélèvement", "prelevement", "surfacturation",
			"remboursement", "service client", "sav", "attente", "retard",
		},
		NotWorking: []string{"ne marche pas", "marche pas", "ne fonctionne pas"},
		Urgency: []string{
			"urgent", "urgence", "immédiatement", "immediatement", "tout de suite", "vite", "rapidement",
		},
		Cancellation: []string{
			"résilier", "resilier", "résiliation", "resiliation", "me barre", "je me barre",
			"partir chez", "changer d'opérateur", "changer d’operateur",
		},
		Sarcasm: SarcasmCues{
			WithEllipsis: []string{"merci"},
			WithNegative: []string{"merci", "bravo"},
			Ellipsis:     []string{"...", "…"},
		},
		Topics: []TopicLexicon{
			{Tag: "fiber_issue", Keywords: []string{"fibre", "ftth", "pon", "ont"}},
			{Tag: "mobile_issue", Keywords: []string{"4g", "5g", "mobile", "forfait", "sim", "carte sim"}},
			{Tag: "network_issue", Keywords: []string{"débit", "debit", "ping", "latence", "lag", "reseau", "réseau"}},
			{Tag: "tv_service_issue", Keywords: []string{"tv", "télé", "tele", "chaine", "chaîne", "replay", "vod"}},
			{Tag: "billing_issue", Keywords: []string{"facture", "prélèvement", "prelevement", "paiement", "tarif", "prix"}},
			{Tag: "customer_service_issue", Keywords: []string{"service client", "sav", "hotline", "support", "conseiller"}},
			{Tag: "equipment_issue", Keywords: []string{"box", "freebox", "modem", "routeur", "router", "décodeur", "decodeur"}},
		},
	}
}

// Validate rejects topic lists the extractor cannot use.
func (l Lexicon) Validate() error {
	seen := make(map[string]struct{}, len(l.Topics))
	for i, t := range l.Topics {
		tag := strings.TrimSpace(t.Tag)
		if tag == "" {
			return fmt.Errorf("lexicon: topic %d has an empty tag", i)
		}
		if _, ok := seen[tag]; ok {
			return fmt.Errorf("lexicon: duplicate topic tag %q", tag)
		}
		seen[tag] = struct{}{}
	}
	return nil
}

// LoadLexiconFile reads a YAML lexicon. Lists present in the file replace the defaults; lists
// left out keep them.
func LoadLexiconFile(path string) (Lexicon, error) {
	if path == "" {
		return Lexicon{}, errors.New("LoadLexiconFile: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("LoadLexiconFile: read file: %w", err)
	}
	return ParseLexicon(b)
}

// ParseLexicon decodes YAML on top of DefaultLexicon.
func ParseLexicon(b []byte) (Lexicon, error) {
	var override Lexicon
	if err := yaml.Unmarshal(b, &override); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: unmarshal: %w", err)
	}

	lex := DefaultLexicon()
	replace := func(dst *[]string, src []string) {
		if src != nil {
			*dst = src
		}
	}
	replace(&lex.StrongNegative, override.StrongNegative)
	replace(&lex.WeakNegative, override.WeakNegative)
	replace(&lex.Praise, override.Praise)
	replace(&lex.Complaint, override.Complaint)
	replace(&lex.NotWorking, override.NotWorking)
	replace(&lex.Urgency, override.Urgency)
	replace(&lex.Cancellation, override.Cancellation)
	replace(&lex.Sarcasm.WithEllipsis, override.Sarcasm.WithEllipsis)
	replace(&lex.Sarcasm.WithNegative, override.Sarcasm.WithNegative)
	replace(&lex.Sarcasm.Ellipsis, override.Sarcasm.Ellipsis)
	if override.Topics != nil {
		lex.Topics = override.Topics
	}

	if err := lex.Validate(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}
