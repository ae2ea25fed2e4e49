package classifier

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "or", "a", "an", "in", "on", "at", "to", "for", "with",
		"by", "about", "as", "of", "from", "is", "are", "was", "were", "be",
		"been", "being", "have", "has", "had", "do", "does", "did", "will",
		"would", "should", "could", "can", "may", "might", "must", "shall",
	} {
		stopWords[w] = struct{}{}
	}
}

// LegalTerms are always extracted when present, ahead of other keywords.
var LegalTerms = []string{
	"murder", "robbery", "theft", "assault", "bail", "bond", "arrest",
	"court", "trial", "appeal", "sentence", "evidence", "witness",
	"prosecution", "defense", "rights", "constitution", "penal", "criminal",
}

// ExtractKeywords returns the legal terms found in text followed by the
// remaining non-stop-word tokens longer than two characters, without
// duplicates.
func ExtractKeywords(text string) []string {
	return keywords(Normalize(text))
}

func keywords(t Text) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(w string) {
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	for _, term := range LegalTerms {
		if Stems(term)(t) {
			add(term)
		}
	}
	for _, tok := range t.Tokens {
		if _, stop := stopWords[tok]; stop || len(tok) <= 2 {
			continue
		}
		add(tok)
	}
	return out
}
