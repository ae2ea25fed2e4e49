package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/events"
	"github.com/kenyawebs/Tana-Delta/internal/executor"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/responder"
)

type fixedSettings struct{ s models.Settings }

func (f fixedSettings) Get(context.Context) (models.Settings, error) { return f.s, nil }

type recordingNotifier struct {
	mu        sync.Mutex
	queries   []*models.Query
	documents []*models.Document
}

func (n *recordingNotifier) QueryFinished(_ context.Context, q *models.Query) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queries = append(n.queries, q)
}

func (n *recordingNotifier) DocumentFinished(_ context.Context, d *models.Document) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.documents = append(n.documents, d)
}

func (n *recordingNotifier) queryCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queries)
}

// blockingResponder never answers before its context ends.
type blockingResponder struct{}

func (blockingResponder) Respond(ctx context.Context, _ *models.Query) (*models.QueryResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingResponder answers every query and document with err.
type failingResponder struct{ err error }

func (f failingResponder) Respond(context.Context, *models.Query) (*models.QueryResult, error) {
	return nil, f.err
}

func (f failingResponder) Analyze(context.Context, *models.Document) (*models.DocumentResult, error) {
	return nil, f.err
}

type fixture struct {
	*Coordinator
	store    *repository.Store
	events   *events.Recorder
	notifier *recordingNotifier
}

func newFixture(t *testing.T, mutate func(*Deps, *models.Settings)) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	tmpl, err := responder.LoadTemplates()
	require.NoError(t, err)

	caches := cache.NewMemoryProvider()
	research := responder.NewResearch(tmpl, caches.Category("research"), log)
	store := repository.NewMemoryStore()
	rec := &events.Recorder{}
	notifier := &recordingNotifier{}

	settings := models.DefaultSettings()
	settings.QueryProcessingTimeout = 0
	settings.DocumentProcessingTimeout = 0

	deps := Deps{
		Store:           store,
		Reasoning:       responder.NewReasoning(tmpl, caches.Category("reasoning"), log),
		Documents:       responder.NewDocuments(tmpl, caches.Category("documents"), log),
		CaseLaw:         responder.NewCaseLaw(tmpl, research, caches.Category("caselaw"), log),
		Executor:        executor.New(4, log),
		Events:          rec,
		Notifier:        notifier,
		Logger:          log,
		QueryTimeout:    5 * time.Second,
		DocumentTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&deps, &settings)
	}
	deps.Settings = fixedSettings{s: settings}

	c := New(deps)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return &fixture{Coordinator: c, store: store, events: rec, notifier: notifier}
}

func (f *fixture) waitQuery(t *testing.T, id string) *models.Query {
	t.Helper()
	var q *models.Query
	require.Eventually(t, func() bool {
		var err error
		q, err = f.GetQueryStatus(context.Background(), id)
		return err == nil && q.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return q
}

func (f *fixture) waitDocument(t *testing.T, id string) *models.Document {
	t.Helper()
	var d *models.Document
	require.Eventually(t, func() bool {
		var err error
		d, err = f.GetDocumentStatus(context.Background(), id)
		return err == nil && d.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return d
}

// waitNotified waits for n query deliveries; delivery follows the status
// write so it can lag behind a terminal status.
func (f *fixture) waitNotified(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.notifier.queryCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func statusesOf(evs []events.StatusChanged, id string) []models.Status {
	var out []models.Status
	for _, ev := range evs {
		if ev.ID == id {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestSubmitQuery(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("robbery definition completes with references and case law", func(t *testing.T) {
		f := newFixture(t, nil)
		r, err := f.SubmitQuery(ctx, QueryRequest{Text: "What is the definition of robbery?"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusReceived, r.Status)
		assert.Equal(t, 5, r.EstimatedTime)

		q := f.waitQuery(t, r.ID)
		require.Equal(t, models.StatusCompleted, q.Status)
		assert.Equal(t, models.QueryLegalDefinition, q.QueryType)
		assert.Contains(t, q.Answer, "Section 296")
		assert.Empty(t, q.Error)

		var cites []string
		for _, c := range q.CaseLaws {
			cites = append(cites, c.Citation)
		}
		assert.Equal(t, []string{"Criminal Appeal No. 32 of 2014", "[2014] eKLR"}, cites)

		f.waitNotified(t, 1)
		assert.Equal(t,
			[]models.Status{models.StatusReceived, models.StatusProcessing, models.StatusCompleted},
			statusesOf(f.events.Events(), r.ID))
	})

	t.Run("empty text is rejected before anything is stored", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitQuery(ctx, QueryRequest{Text: "   "})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		n, err := f.store.Queries.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("text over the limit is rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitQuery(ctx, QueryRequest{Text: strings.Repeat("a", models.MaxQueryLength+1)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("admin limit below the maximum applies", func(t *testing.T) {
		f := newFixture(t, func(_ *Deps, s *models.Settings) { s.MaxQueryLength = 10 })
		_, err := f.SubmitQuery(ctx, QueryRequest{Text: "What is the meaning of bail?"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("maintenance mode refuses submissions", func(t *testing.T) {
		f := newFixture(t, func(_ *Deps, s *models.Settings) { s.MaintenanceMode = true })
		_, err := f.SubmitQuery(ctx, QueryRequest{Text: "What is bail?"})
		assert.ErrorIs(t, err, apperr.ErrMaintenance)
	})

	t.Run("slow responder times out into failed", func(t *testing.T) {
		f := newFixture(t, func(d *Deps, _ *models.Settings) {
			d.Reasoning = blockingResponder{}
			d.QueryTimeout = 30 * time.Millisecond
		})
		r, err := f.SubmitQuery(ctx, QueryRequest{Text: "How do I apply for bail?"})
		require.NoError(t, err)

		q := f.waitQuery(t, r.ID)
		assert.Equal(t, models.StatusFailed, q.Status)
		assert.Equal(t, "processing timed out after 30ms", q.Error)
		assert.Empty(t, q.Answer)
		f.waitNotified(t, 1)
	})

	t.Run("responder error is recorded verbatim", func(t *testing.T) {
		f := newFixture(t, func(d *Deps, _ *models.Settings) {
			d.Reasoning = failingResponder{err: errors.New("knowledge base unavailable")}
		})
		r, err := f.SubmitQuery(ctx, QueryRequest{Text: "What is theft?"})
		require.NoError(t, err)

		q := f.waitQuery(t, r.ID)
		assert.Equal(t, models.StatusFailed, q.Status)
		assert.Equal(t, "knowledge base unavailable", q.Error)
		f.waitNotified(t, 1)
	})

	t.Run("terminal status is never overwritten", func(t *testing.T) {
		f := newFixture(t, nil)
		r, err := f.SubmitQuery(ctx, QueryRequest{Text: "Show me case law on murder"})
		require.NoError(t, err)
		q := f.waitQuery(t, r.ID)
		require.Equal(t, models.StatusCompleted, q.Status)
		f.waitNotified(t, 1)

		f.failQuery(q.ID, q.Source, apperr.ErrTimeout, time.Now())

		again, err := f.GetQueryStatus(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, again.Status)
		assert.Empty(t, again.Error)
		assert.Equal(t, 1, f.notifier.queryCount())
	})
}

func TestSubmitDocument(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("bail application is classified and analysed", func(t *testing.T) {
		f := newFixture(t, nil)
		r, err := f.SubmitDocument(ctx, DocumentRequest{
			Title:       "Bail application",
			Description: "Application for release pending trial",
			File:        models.FileInfo{Name: "bail.pdf", Type: "application/pdf", Size: 2048},
		})
		require.NoError(t, err)
		assert.Equal(t, 30, r.EstimatedTime)

		d := f.waitDocument(t, r.ID)
		require.Equal(t, models.StatusCompleted, d.Status)
		assert.Equal(t, models.DocBailApplication, d.DocumentType)
		assert.Contains(t, d.Analysis, "Article 49(1)(h)")
		assert.Len(t, d.Recommendations, 5)
		require.NotEmpty(t, d.CaseLawReferences)
		assert.Equal(t, "[2018] eKLR", d.CaseLawReferences[0].Citation)
	})

	t.Run("responder error is recorded verbatim", func(t *testing.T) {
		f := newFixture(t, func(d *Deps, _ *models.Settings) {
			d.Documents = failingResponder{err: errors.New("knowledge base unavailable")}
		})
		r, err := f.SubmitDocument(ctx, DocumentRequest{Title: "Charge sheet"})
		require.NoError(t, err)

		d := f.waitDocument(t, r.ID)
		assert.Equal(t, models.StatusFailed, d.Status)
		assert.Equal(t, "knowledge base unavailable", d.Error)
		assert.Empty(t, d.Analysis)
	})

	t.Run("title is required", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitDocument(ctx, DocumentRequest{Description: "no title"})
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	})

	t.Run("disallowed file type", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitDocument(ctx, DocumentRequest{
			Title: "Charge sheet",
			File:  models.FileInfo{Name: "charges.exe", Size: 10},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("oversized file", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitDocument(ctx, DocumentRequest{
			Title: "Charge sheet",
			File:  models.FileInfo{Name: "charges.pdf", Size: 11 << 20},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown explicit type", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.SubmitDocument(ctx, DocumentRequest{Title: "x", DocumentType: "memo"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestStatusLookups(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.GetQueryStatus(ctx, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.GetDocumentStatus(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStats(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	user := primitive.NewObjectID()
	for _, text := range []string{"What is theft?", "What is assault?"} {
		r, err := f.SubmitQuery(ctx, QueryRequest{Text: text, UserID: user})
		require.NoError(t, err)
		f.waitQuery(t, r.ID)
	}

	st, err := f.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalQueries)
	assert.EqualValues(t, 1, st.ActiveUsers)
	assert.Equal(t, 100.0, st.SuccessRate)

	hist, err := f.QueryHistory(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestEstimates(t *testing.T) {
	assert.Equal(t, 5, EstimateQuery("short", models.QueryGeneral))
	assert.Equal(t, 10, EstimateQuery("short", models.QueryCaseLaw))
	assert.Equal(t, 8, EstimateQuery("short", models.QueryProceduralGuidance))
	assert.Equal(t, 60, EstimateQuery(strings.Repeat("x", 10000), models.QueryCaseLaw))

	assert.Equal(t, 30, EstimateDocument("charge.PDF"))
	assert.Equal(t, 20, EstimateDocument("order.docx"))
	assert.Equal(t, 15, EstimateDocument("photo.jpg"))
	assert.Equal(t, 10, EstimateDocument("notes.txt"))
	assert.Equal(t, 30, EstimateDocument("pdf"))
}
