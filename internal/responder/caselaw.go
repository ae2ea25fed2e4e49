package responder

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// searchOrder lists the index categories consulted for a query or document
// type, most relevant first.
var searchOrder = map[string][]string{
	"criminal":                             {"criminal", "constitutional"},
	string(models.QueryLegalDefinition):    {"criminal", "constitutional"},
	string(models.QueryProceduralGuidance): {"criminal", "constitutional"},
	string(models.DocChargeSheet):          {"criminal", "constitutional"},
	"constitutional":                       {"constitutional", "criminal"},
	"rights":                               {"constitutional", "criminal"},
	string(models.DocBailApplication):      {"constitutional", "criminal"},
	"civil":                                {"civil", "constitutional"},
}

var defaultOrder = []string{"criminal", "constitutional", "civil"}

// researchKeywords is how many keywords are passed on to research when the
// local index has nothing.
const researchKeywords = 3

var citationChars = regexp.MustCompile(`[\[\]/\s]`)

// CaseLaw finds decisions in the local index, falling back to reported-case
// research. Results are cached per query, document and citation.
type CaseLaw struct {
	index    CaseIndex
	research *Research
	store    cache.Store
	log      *zap.SugaredLogger
}

func NewCaseLaw(t *Templates, research *Research, store cache.Store, log *zap.SugaredLogger) *CaseLaw {
	return &CaseLaw{index: t.Cases, research: research, store: store, log: log}
}

func (c *CaseLaw) ForQuery(ctx context.Context, q *models.Query) []models.CaseLaw {
	key := "query_" + q.ID.Hex()
	kw := q.Keywords
	if len(kw) == 0 {
		kw = classifier.ExtractKeywords(q.QueryText)
	}
	return c.lookup(ctx, key, kw, string(q.QueryType))
}

func (c *CaseLaw) ForDocument(ctx context.Context, d *models.Document) []models.CaseLaw {
	key := "document_" + d.ID.Hex()
	kw := append(classifier.ExtractKeywords(d.Title), classifier.ExtractKeywords(d.Description)...)
	return c.lookup(ctx, key, kw, string(d.DocumentType))
}

func (c *CaseLaw) lookup(ctx context.Context, key string, keywords []string, kind string) []models.CaseLaw {
	var cached []models.CaseLaw
	if cache.GetJSON(ctx, c.store, key, &cached) {
		return cached
	}
	found := c.Relevant(ctx, keywords, kind)
	c.log.Infow("case law lookup", "key", key, "found", len(found))
	cache.PutJSON(ctx, c.store, key, found, c.log)
	return found
}

// Relevant searches the index categories for kind with every keyword. When
// the index has nothing, the first few keywords go to research instead.
func (c *CaseLaw) Relevant(ctx context.Context, keywords []string, kind string) []models.CaseLaw {
	order, ok := searchOrder[kind]
	if !ok {
		order = defaultOrder
	}

	var hits []models.CaseLaw
	for _, category := range order {
		for _, kw := range keywords {
			hits = append(hits, c.index[category][kw]...)
		}
	}
	if len(hits) > 0 {
		return models.MergeCaseLaws(nil, hits)
	}

	if len(keywords) == 0 || c.research == nil {
		return []models.CaseLaw{}
	}
	n := min(len(keywords), researchKeywords)
	res, err := c.research.CaseLaw(ctx, strings.Join(keywords[:n], " "))
	if err != nil {
		c.log.Errorw("case law research failed", "keywords", keywords[:n], "err", err)
		return []models.CaseLaw{}
	}
	if !res.Found {
		return []models.CaseLaw{}
	}
	return res.Cases
}

// ByCitation researches a single citation. Brackets are dropped from eKLR
// citations before searching.
func (c *CaseLaw) ByCitation(ctx context.Context, citation string) (*CaseLawResult, error) {
	key := "citation_" + citationChars.ReplaceAllString(citation, "_")
	var cached CaseLawResult
	if cache.GetJSON(ctx, c.store, key, &cached) {
		return &cached, nil
	}

	term := citation
	if strings.Contains(citation, "eKLR") {
		term = strings.NewReplacer("[", "", "]", "").Replace(citation)
	}
	res, err := c.research.CaseLaw(ctx, term)
	if err != nil {
		return nil, err
	}
	cache.PutJSON(ctx, c.store, key, res, c.log)
	return res, nil
}
