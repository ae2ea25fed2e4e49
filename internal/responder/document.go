package responder

import (
	"context"

	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const genericDocument = "generic"

// bundleAnalyzer renders one document bundle.
type bundleAnalyzer struct {
	bundle DocumentBundle
}

func (b bundleAnalyzer) Analyze(ctx context.Context, d *models.Document) (*models.DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysis, err := b.bundle.render(d)
	if err != nil {
		return nil, err
	}
	return &models.DocumentResult{
		Analysis:        analysis,
		Recommendations: append([]string{}, b.bundle.Recommendations...),
	}, nil
}

// Documents picks the analyzer for a document's type, falling back to the
// generic bundle, and caches results per document id.
type Documents struct {
	byType  map[models.DocumentType]DocumentResponder
	generic DocumentResponder
	store   cache.Store
	log     *zap.SugaredLogger
}

func NewDocuments(t *Templates, store cache.Store, log *zap.SugaredLogger) *Documents {
	d := &Documents{
		byType:  make(map[models.DocumentType]DocumentResponder),
		generic: bundleAnalyzer{bundle: t.Documents[genericDocument]},
		store:   store,
		log:     log,
	}
	for name, b := range t.Documents {
		if name == genericDocument {
			continue
		}
		d.byType[models.DocumentType(name)] = bundleAnalyzer{bundle: b}
	}
	return d
}

func (s *Documents) Analyze(ctx context.Context, d *models.Document) (*models.DocumentResult, error) {
	key := "document_" + d.ID.Hex()

	var cached models.DocumentResult
	if cache.GetJSON(ctx, s.store, key, &cached) {
		s.log.Debugw("document cache hit", "document_id", d.ID.Hex())
		return &cached, nil
	}

	h, ok := s.byType[d.DocumentType]
	if !ok {
		h = s.generic
	}
	res, err := h.Analyze(ctx, d)
	if err != nil {
		return nil, err
	}
	cache.PutJSON(ctx, s.store, key, res, s.log)
	return res, nil
}
