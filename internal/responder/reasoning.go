package responder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// sectionResponder answers every query of one type from its bundle list.
type sectionResponder struct {
	section Section
}

func (s sectionResponder) pick(text string) Bundle {
	t := classifier.Normalize(text)
	for _, b := range s.section.Bundles {
		if classifier.Stems(b.Match...)(t) {
			return b
		}
	}
	return s.section.Fallback
}

func (s sectionResponder) Respond(ctx context.Context, q *models.Query) (*models.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.pick(q.QueryText)
	return &models.QueryResult{
		Answer:     b.Answer,
		References: append([]models.Reference{}, b.References...),
		CaseLaws:   models.MergeCaseLaws(nil, b.CaseLaws),
	}, nil
}

// Reasoning dispatches a query to the responder for its type and caches the
// answer per query id.
type Reasoning struct {
	byType map[models.QueryType]QueryResponder
	store  cache.Store
	log    *zap.SugaredLogger
}

func NewReasoning(t *Templates, store cache.Store, log *zap.SugaredLogger) *Reasoning {
	byType := make(map[models.QueryType]QueryResponder, len(t.Reasoning))
	for qt, s := range t.Reasoning {
		byType[qt] = sectionResponder{section: s}
	}
	return &Reasoning{byType: byType, store: store, log: log}
}

func (r *Reasoning) Respond(ctx context.Context, q *models.Query) (*models.QueryResult, error) {
	key := "query_" + q.ID.Hex()

	var cached models.QueryResult
	if cache.GetJSON(ctx, r.store, key, &cached) {
		r.log.Debugw("reasoning cache hit", "query_id", q.ID.Hex())
		return &cached, nil
	}

	h, ok := r.byType[q.QueryType]
	if !ok {
		h, ok = r.byType[models.QueryGeneral]
	}
	if !ok {
		return nil, fmt.Errorf("no responder for query type %q", q.QueryType)
	}

	res, err := h.Respond(ctx, q)
	if err != nil {
		return nil, err
	}
	cache.PutJSON(ctx, r.store, key, res, r.log)
	return res, nil
}
