// Package classifier maps free text to query types, document types and
// WhatsApp intents using ordered keyword rule tables. The first rule that
// matches wins; every function is total and deterministic.
package classifier

import (
	"regexp"
	"strings"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

var punctuation = regexp.MustCompile(`[^\w\s]`)

// Text is the normalized form rules are evaluated against.
type Text struct {
	Lower  string   // lowercased, punctuation kept
	Clean  string   // lowercased, punctuation stripped, single spaced
	Tokens []string // fields of Clean
}

func Normalize(s string) Text {
	lower := strings.ToLower(strings.TrimSpace(s))
	tokens := strings.Fields(punctuation.ReplaceAllString(lower, ""))
	return Text{Lower: lower, Clean: strings.Join(tokens, " "), Tokens: tokens}
}

// Predicate decides whether a rule applies.
type Predicate func(Text) bool

// Rule pairs a predicate with the tag it yields.
type Rule[T any] struct {
	Tag   T
	Match Predicate
}

// First returns the tag of the first matching rule, or def.
func First[T any](rules []Rule[T], t Text, def T) T {
	for _, r := range rules {
		if r.Match(t) {
			return r.Tag
		}
	}
	return def
}

// Words matches whole words or multi-word phrases in the cleaned text.
func Words(phrases ...string) Predicate {
	return func(t Text) bool {
		padded := " " + t.Clean + " "
		for _, p := range phrases {
			if strings.Contains(padded, " "+p+" ") {
				return true
			}
		}
		return false
	}
}

// Stems matches any token starting with one of the stems, so "arrested"
// matches "arrest".
func Stems(stems ...string) Predicate {
	return func(t Text) bool {
		for _, tok := range t.Tokens {
			for _, s := range stems {
				if strings.HasPrefix(tok, s) {
					return true
				}
			}
		}
		return false
	}
}

// Pattern matches a regular expression against the lowercased raw text.
func Pattern(expr string) Predicate {
	re := regexp.MustCompile(expr)
	return func(t Text) bool { return re.MatchString(t.Lower) }
}

func Any(ps ...Predicate) Predicate {
	return func(t Text) bool {
		for _, p := range ps {
			if p(t) {
				return true
			}
		}
		return false
	}
}

var queryRules = []Rule[models.QueryType]{
	{models.QueryLegalDefinition, Any(
		Stems("defin"),
		Words("what is", "what are", "what does", "what constitutes", "meaning of", "elements of", "means"),
	)},
	{models.QueryCaseLaw, Any(
		Words("case law", "case laws", "precedent", "precedents", "ruling", "rulings", "judgment", "judgments", "landmark", "decided", "cases"),
		Stems("murder", "homicide", "robber"),
	)},
	{models.QueryProceduralGuidance, Any(
		Words("how do i", "how can i", "how to", "what should i", "steps", "procedure", "process", "apply", "file"),
		Stems("bail", "bond", "appeal", "arrest", "plea"),
	)},
}

var documentRules = []Rule[models.DocumentType]{
	{models.DocChargeSheet, Words("charge sheet", "chargesheet", "charged with", "charges")},
	{models.DocBailApplication, Any(Stems("bail"), Words("bond application", "bond"))},
	{models.DocCourtOrder, Words("court order", "order of the court", "orders", "injunction", "warrant", "ruling", "decree")},
	{models.DocAppeal, Stems("appeal")},
	{models.DocAffidavit, Any(Stems("affidavit"), Words("sworn statement"))},
	{models.DocLegalNotice, Words("notice", "legal notice", "summons", "demand letter")},
}

// Classification is the result for a query text.
type Classification struct {
	QueryType models.QueryType `json:"queryType"`
	Keywords  []string         `json:"keywords"`
}

func Classify(text string) Classification {
	t := Normalize(text)
	return Classification{
		QueryType: First(queryRules, t, models.QueryGeneral),
		Keywords:  keywords(t),
	}
}

// ClassifyDocument picks a document type from the title and description.
func ClassifyDocument(title, description string) models.DocumentType {
	return First(documentRules, Normalize(title+" "+description), models.DocOther)
}
