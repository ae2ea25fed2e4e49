package models

// Reference is a static citation to a statute or constitutional article.
type Reference struct {
	Title   string `bson:"title" json:"title"`
	Section string `bson:"section" json:"section"`
	Text    string `bson:"text" json:"text"`
}

// CaseLaw is a court decision attached to a query or document. Citation is
// the identity used for de-duplication.
type CaseLaw struct {
	Citation string `bson:"citation" json:"caseNumber"`
	Title    string `bson:"title" json:"caseName"`
	Summary  string `bson:"summary" json:"summary"`
	Court    string `bson:"court,omitempty" json:"court,omitempty"`
	Date     string `bson:"date,omitempty" json:"date,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// MergeCaseLaws appends the entries of extra whose citation is not already
// present in base or earlier in extra. Order is preserved.
func MergeCaseLaws(base, extra []CaseLaw) []CaseLaw {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]CaseLaw, 0, len(base)+len(extra))
	for _, c := range base {
		if _, ok := seen[c.Citation]; ok {
			continue
		}
		seen[c.Citation] = struct{}{}
		out = append(out, c)
	}
	for _, c := range extra {
		if _, ok := seen[c.Citation]; ok {
			continue
		}
		seen[c.Citation] = struct{}{}
		out = append(out, c)
	}
	return out
}
