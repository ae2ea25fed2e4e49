package responder

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

type SourceCount struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ResultsCount int    `json:"resultsCount"`
}

type TopicResult struct {
	Topic          string        `json:"topic"`
	Keywords       []string      `json:"keywords"`
	Timestamp      time.Time     `json:"timestamp"`
	Sources        []SourceCount `json:"sources"`
	Statutes       []Material    `json:"statutes"`
	Regulations    []Material    `json:"regulations"`
	Articles       []Material    `json:"articles"`
	ProcessingTime float64       `json:"processingTime"`
}

type StatuteResult struct {
	StatuteName     string    `json:"statuteName"`
	Section         string    `json:"section,omitempty"`
	Found           bool      `json:"found"`
	FullName        string    `json:"fullName,omitempty"`
	URL             string    `json:"url,omitempty"`
	Content         string    `json:"content,omitempty"`
	RelatedSections []string  `json:"relatedSections"`
	Timestamp       time.Time `json:"timestamp"`
	ProcessingTime  float64   `json:"processingTime"`
}

type CaseLawResult struct {
	Reference      string           `json:"reference"`
	Found          bool             `json:"found"`
	Cases          []models.CaseLaw `json:"cases"`
	Timestamp      time.Time        `json:"timestamp"`
	ProcessingTime float64          `json:"processingTime"`
}

// Research looks up statutes, regulations, articles and reported decisions.
type Research struct {
	table ResearchTable
	store cache.Store
	log   *zap.SugaredLogger
}

func NewResearch(t *Templates, store cache.Store, log *zap.SugaredLogger) *Research {
	return &Research{table: t.Research, store: store, log: log}
}

func (r *Research) source(key string) Source {
	for _, s := range r.table.Sources {
		if s.Key == key {
			return s
		}
	}
	return Source{Key: key}
}

// Sources lists the external sites research draws on.
func (r *Research) Sources() []Source {
	return append([]Source{}, r.table.Sources...)
}

func topicKey(topic string, keywords []string) string {
	t := strings.Join(strings.Fields(strings.ToLower(topic)), "_")
	kw := make([]string, len(keywords))
	for i, k := range keywords {
		kw[i] = strings.ToLower(k)
	}
	sort.Strings(kw)
	joined := strings.Join(kw, "_")
	if joined == "" {
		joined = "no_keywords"
	}
	return t + "_" + joined
}

// find returns the entries whose terms occur in topic; entries without
// terms always apply. Fallback is used when nothing applied.
func (set MaterialSet) find(topic string) []Material {
	lower := strings.ToLower(topic)
	var out []Material
	for _, m := range set.Entries {
		if len(m.Terms) == 0 {
			out = append(out, m)
			continue
		}
		for _, term := range m.Terms {
			if strings.Contains(lower, term) {
				out = append(out, m)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, set.Fallback...)
	}
	return out
}

// Topic gathers materials for topic from Kenya Law and the Judiciary in
// parallel.
func (r *Research) Topic(ctx context.Context, topic string, keywords []string) (*TopicResult, error) {
	key := topicKey(topic, keywords)
	var cached TopicResult
	if cache.GetJSON(ctx, r.store, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	var kenyaLaw, judiciary []Material
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		kenyaLaw = r.table.KenyaLaw.find(topic)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		judiciary = r.table.Judiciary.find(topic)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &TopicResult{
		Topic:       topic,
		Keywords:    append([]string{}, keywords...),
		Timestamp:   time.Now().UTC(),
		Statutes:    []Material{},
		Regulations: []Material{},
		Articles:    judiciary,
	}
	for _, m := range kenyaLaw {
		switch m.Type {
		case "regulation":
			res.Regulations = append(res.Regulations, m)
		default:
			res.Statutes = append(res.Statutes, m)
		}
	}
	kl, jud := r.source("kenyaLaw"), r.source("judiciary")
	res.Sources = []SourceCount{
		{Name: kl.Name, URL: kl.URL, ResultsCount: len(kenyaLaw)},
		{Name: jud.Name, URL: jud.URL, ResultsCount: len(judiciary)},
	}
	res.ProcessingTime = time.Since(start).Seconds()

	r.log.Infow("research topic", "topic", topic, "statutes", len(res.Statutes), "articles", len(res.Articles))
	cache.PutJSON(ctx, r.store, key, res, r.log)
	return res, nil
}

// Statute returns the text of a statute section, or a summary of the whole
// statute when section is empty. Unknown statutes and sections are reported
// with Found false.
func (r *Research) Statute(ctx context.Context, name, section string) (*StatuteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part := section
	if part == "" {
		part = "full"
	}
	key := "statute_" + strings.ToLower(name) + "_" + part
	var cached StatuteResult
	if cache.GetJSON(ctx, r.store, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	res := &StatuteResult{
		StatuteName:     name,
		Section:         section,
		RelatedSections: []string{},
		Timestamp:       time.Now().UTC(),
	}
	lower := strings.ToLower(name)
	for _, st := range r.table.Statutes {
		if !strings.Contains(lower, st.Match) {
			continue
		}
		res.FullName = st.FullName
		res.URL = st.URL
		if section == "" {
			res.Found = true
			res.Content = st.Summary
			break
		}
		if sec, ok := st.Sections[section]; ok {
			res.Found = true
			res.Content = sec.Content
			res.RelatedSections = append(res.RelatedSections, sec.Related...)
		}
		break
	}
	res.ProcessingTime = time.Since(start).Seconds()

	cache.PutJSON(ctx, r.store, key, res, r.log)
	return res, nil
}

// CaseLaw searches reported decisions for reference. Every keyword of the
// reference found in a decision's citation, title or summary scores a point;
// the decisions with the best non-zero score are returned.
func (r *Research) CaseLaw(ctx context.Context, reference string) (*CaseLawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := "caselaw_" + strings.ToLower(strings.Join(strings.Fields(reference), "_"))
	var cached CaseLawResult
	if cache.GetJSON(ctx, r.store, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	terms := classifier.ExtractKeywords(reference)
	best := 0
	cases := []models.CaseLaw{}
	for _, c := range r.table.ReportedCases {
		hay := classifier.Normalize(c.Citation + " " + c.Title + " " + c.Summary)
		score := 0
		for _, term := range terms {
			if classifier.Words(term)(hay) {
				score++
			}
		}
		switch {
		case score == 0 || score < best:
		case score > best:
			best = score
			cases = []models.CaseLaw{c}
		default:
			cases = append(cases, c)
		}
	}

	res := &CaseLawResult{
		Reference:      reference,
		Found:          len(cases) > 0,
		Cases:          models.MergeCaseLaws(nil, cases),
		Timestamp:      time.Now().UTC(),
		ProcessingTime: time.Since(start).Seconds(),
	}
	cache.PutJSON(ctx, r.store, key, res, r.log)
	return res, nil
}
