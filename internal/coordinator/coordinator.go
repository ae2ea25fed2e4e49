// Package coordinator owns the lifecycle of queries and documents: it
// validates submissions, persists them as received, and drives them through
// processing to a terminal state on the executor.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/events"
	"github.com/kenyawebs/Tana-Delta/internal/executor"
	"github.com/kenyawebs/Tana-Delta/internal/metrics"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/responder"
)

// Notifier is told about every entity that reached a terminal state.
type Notifier interface {
	QueryFinished(ctx context.Context, q *models.Query)
	DocumentFinished(ctx context.Context, d *models.Document)
}

type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

type Deps struct {
	Store     *repository.Store
	Settings  SettingsSource
	Reasoning responder.QueryResponder
	Documents responder.DocumentResponder
	CaseLaw   responder.CaseLawFinder
	Executor  *executor.Executor
	Events    events.Publisher
	Notifier  Notifier
	Logger    *zap.SugaredLogger

	// Used when the settings record carries no timeout.
	QueryTimeout    time.Duration
	DocumentTimeout time.Duration
}

type Coordinator struct {
	Deps
}

func New(d Deps) *Coordinator {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &Coordinator{Deps: d}
}

// Receipt acknowledges a submission.
type Receipt struct {
	ID            string        `json:"id"`
	Status        models.Status `json:"status"`
	EstimatedTime int           `json:"estimatedTime"`
	Message       string        `json:"message"`
}

type QueryRequest struct {
	Text   string
	UserID primitive.ObjectID
	Source models.Source
}

type DocumentRequest struct {
	Title        string
	Description  string
	DocumentType models.DocumentType
	UserID       primitive.ObjectID
	Source       models.Source
	File         models.FileInfo
}

func (c *Coordinator) settings(ctx context.Context) (models.Settings, error) {
	s, err := c.Settings.Get(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if s.MaintenanceMode {
		return models.Settings{}, apperr.ErrMaintenance
	}
	return s, nil
}

func timeout(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func (c *Coordinator) SubmitQuery(ctx context.Context, req QueryRequest) (*Receipt, error) {
	s, err := c.settings(ctx)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.Invalid("queryText", "is required")
	}
	limit := min(s.MaxQueryLength, models.MaxQueryLength)
	if limit <= 0 {
		limit = models.MaxQueryLength
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return nil, apperr.Invalid("queryText", "must be at most %d characters, got %d", limit, n)
	}
	if req.Source == "" {
		req.Source = models.SourceWeb
	}

	cls := classifier.Classify(text)
	q := &models.Query{
		UserID:     req.UserID,
		QueryText:  text,
		QueryType:  cls.QueryType,
		Keywords:   cls.Keywords,
		Status:     models.StatusReceived,
		Source:     req.Source,
		References: []models.Reference{},
		CaseLaws:   []models.CaseLaw{},
	}
	if err := c.Store.Queries.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create query: %w", err)
	}
	c.Logger.Infow("query received", "query_id", q.ID.Hex(), "type", q.QueryType, "source", q.Source)
	c.record(events.KindQuery, q.ID.Hex(), models.StatusReceived, q.Source, "")

	c.scheduleQuery(q, timeout(s.QueryProcessingTimeout, c.QueryTimeout))

	return &Receipt{
		ID:            q.ID.Hex(),
		Status:        models.StatusReceived,
		EstimatedTime: EstimateQuery(text, q.QueryType),
		Message:       "Query submitted successfully",
	}, nil
}

func (c *Coordinator) scheduleQuery(q *models.Query, limit time.Duration) {
	id := q.ID
	start := time.Now()
	err := c.Executor.Submit(executor.Job{
		Key:     "query:" + id.Hex(),
		Timeout: limit,
		Run:     func(ctx context.Context) error { return c.processQuery(ctx, id, start) },
		Done: func(err error) {
			if err != nil {
				c.failQuery(id, q.Source, err, start)
			}
		},
	})
	if err != nil {
		c.Logger.Errorw("query not scheduled", "query_id", id.Hex(), "err", err)
		c.failQuery(id, q.Source, err, start)
	}
}

func (c *Coordinator) processQuery(ctx context.Context, id primitive.ObjectID, start time.Time) error {
	if err := c.Store.Queries.MarkProcessing(ctx, id); err != nil {
		return err
	}
	q, err := c.Store.Queries.Get(ctx, id)
	if err != nil {
		return err
	}
	c.record(events.KindQuery, id.Hex(), models.StatusProcessing, q.Source, "")

	// the responder's message is stored as is
	res, err := c.Reasoning.Respond(ctx, q)
	if err != nil {
		c.Logger.Warnw("reasoning responder failed", "query_id", id.Hex(), "err", err)
		return err
	}
	res.CaseLaws = models.MergeCaseLaws(res.CaseLaws, c.CaseLaw.ForQuery(ctx, q))

	took := time.Since(start).Seconds()
	if err := c.Store.Queries.Complete(ctx, id, *res, took); err != nil {
		return err
	}
	c.Logger.Infow("query completed", "query_id", id.Hex(), "seconds", took, "case_laws", len(res.CaseLaws))
	c.record(events.KindQuery, id.Hex(), models.StatusCompleted, q.Source, "")
	metrics.ProcessingSeconds.WithLabelValues(events.KindQuery).Observe(took)

	c.notifyQuery(id)
	return nil
}

// failQuery moves a query to failed. A query still received is moved
// through processing first so the lifecycle is never skipped.
func (c *Coordinator) failQuery(id primitive.ObjectID, source models.Source, cause error, start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = c.Store.Queries.MarkProcessing(ctx, id)
	took := time.Since(start).Seconds()
	if err := c.Store.Queries.Fail(ctx, id, cause.Error(), took); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			c.Logger.Infow("query already terminal, failure dropped", "query_id", id.Hex(), "cause", cause)
			return
		}
		c.Logger.Errorw("mark query failed", "query_id", id.Hex(), "err", err)
		return
	}
	c.Logger.Errorw("query failed", "query_id", id.Hex(), "err", cause)
	c.record(events.KindQuery, id.Hex(), models.StatusFailed, source, cause.Error())
	metrics.ProcessingSeconds.WithLabelValues(events.KindQuery).Observe(took)

	c.notifyQuery(id)
}

func (c *Coordinator) notifyQuery(id primitive.ObjectID) {
	if c.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q, err := c.Store.Queries.Get(ctx, id)
	if err != nil {
		c.Logger.Errorw("reload query for delivery", "query_id", id.Hex(), "err", err)
		return
	}
	c.Notifier.QueryFinished(ctx, q)
}

func (c *Coordinator) SubmitDocument(ctx context.Context, req DocumentRequest) (*Receipt, error) {
	s, err := c.settings(ctx)
	if err != nil {
		return nil, err
	}

	if err := CheckDocument(req, s); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	desc := strings.TrimSpace(req.Description)
	if req.DocumentType == "" {
		req.DocumentType = classifier.ClassifyDocument(title, desc)
	}
	if req.Source == "" {
		req.Source = models.SourceWeb
	}

	d := &models.Document{
		UserID:            req.UserID,
		Title:             title,
		DocumentType:      req.DocumentType,
		Description:       desc,
		File:              req.File,
		Status:            models.StatusReceived,
		Source:            req.Source,
		Recommendations:   []string{},
		CaseLawReferences: []models.CaseLaw{},
	}
	if err := c.Store.Documents.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	c.Logger.Infow("document received", "document_id", d.ID.Hex(), "type", d.DocumentType, "source", d.Source)
	c.record(events.KindDocument, d.ID.Hex(), models.StatusReceived, d.Source, "")

	c.scheduleDocument(d, timeout(s.DocumentProcessingTimeout, c.DocumentTimeout))

	estimateFrom := req.File.Name
	if estimateFrom == "" {
		estimateFrom = req.File.Type
	}
	return &Receipt{
		ID:            d.ID.Hex(),
		Status:        models.StatusReceived,
		EstimatedTime: EstimateDocument(estimateFrom),
		Message:       "Document submitted successfully",
	}, nil
}

// CheckDocument validates a document submission against the field limits
// and the admin file limits. Nothing is stored.
func CheckDocument(req DocumentRequest, s models.Settings) error {
	title := strings.TrimSpace(req.Title)
	desc := strings.TrimSpace(req.Description)
	switch {
	case title == "":
		return apperr.Invalid("title", "is required")
	case utf8.RuneCountInString(title) > models.MaxTitleLength:
		return apperr.Invalid("title", "must be at most %d characters", models.MaxTitleLength)
	case utf8.RuneCountInString(desc) > models.MaxDescriptionLength:
		return apperr.Invalid("description", "must be at most %d characters", models.MaxDescriptionLength)
	case req.DocumentType != "" && !req.DocumentType.Valid():
		return apperr.Invalid("documentType", "unknown document type %q", req.DocumentType)
	}
	return CheckFile(req.File, s)
}

// CheckFile applies the admin limits to an attached file. Documents
// submitted without a file skip the check.
func CheckFile(f models.FileInfo, s models.Settings) error {
	if f.Name == "" && f.URL == "" {
		return nil
	}
	if s.MaxDocumentSize > 0 && f.Size > int64(s.MaxDocumentSize)<<20 {
		return apperr.Invalid("file", "exceeds the %d MB limit", s.MaxDocumentSize)
	}
	if len(s.AllowedDocumentTypes) == 0 || f.Name == "" {
		return nil
	}
	ext := fileExt(f.Name)
	for _, allowed := range s.AllowedDocumentTypes {
		if strings.EqualFold(allowed, ext) {
			return nil
		}
	}
	return apperr.Invalid("file", "type %q is not allowed", ext)
}

func (c *Coordinator) scheduleDocument(d *models.Document, limit time.Duration) {
	id := d.ID
	start := time.Now()
	err := c.Executor.Submit(executor.Job{
		Key:     "document:" + id.Hex(),
		Timeout: limit,
		Run:     func(ctx context.Context) error { return c.processDocument(ctx, id, start) },
		Done: func(err error) {
			if err != nil {
				c.failDocument(id, d.Source, err, start)
			}
		},
	})
	if err != nil {
		c.Logger.Errorw("document not scheduled", "document_id", id.Hex(), "err", err)
		c.failDocument(id, d.Source, err, start)
	}
}

func (c *Coordinator) processDocument(ctx context.Context, id primitive.ObjectID, start time.Time) error {
	if err := c.Store.Documents.MarkProcessing(ctx, id); err != nil {
		return err
	}
	d, err := c.Store.Documents.Get(ctx, id)
	if err != nil {
		return err
	}
	c.record(events.KindDocument, id.Hex(), models.StatusProcessing, d.Source, "")

	res, err := c.Documents.Analyze(ctx, d)
	if err != nil {
		c.Logger.Warnw("document responder failed", "document_id", id.Hex(), "err", err)
		return err
	}
	cases := c.CaseLaw.ForDocument(ctx, d)

	took := time.Since(start).Seconds()
	if err := c.Store.Documents.Complete(ctx, id, *res, cases, took); err != nil {
		return err
	}
	c.Logger.Infow("document completed", "document_id", id.Hex(), "seconds", took, "case_laws", len(cases))
	c.record(events.KindDocument, id.Hex(), models.StatusCompleted, d.Source, "")
	metrics.ProcessingSeconds.WithLabelValues(events.KindDocument).Observe(took)

	c.notifyDocument(id)
	return nil
}

func (c *Coordinator) failDocument(id primitive.ObjectID, source models.Source, cause error, start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = c.Store.Documents.MarkProcessing(ctx, id)
	took := time.Since(start).Seconds()
	if err := c.Store.Documents.Fail(ctx, id, cause.Error(), took); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			c.Logger.Infow("document already terminal, failure dropped", "document_id", id.Hex(), "cause", cause)
			return
		}
		c.Logger.Errorw("mark document failed", "document_id", id.Hex(), "err", err)
		return
	}
	c.Logger.Errorw("document failed", "document_id", id.Hex(), "err", cause)
	c.record(events.KindDocument, id.Hex(), models.StatusFailed, source, cause.Error())
	metrics.ProcessingSeconds.WithLabelValues(events.KindDocument).Observe(took)

	c.notifyDocument(id)
}

func (c *Coordinator) notifyDocument(id primitive.ObjectID) {
	if c.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d, err := c.Store.Documents.Get(ctx, id)
	if err != nil {
		c.Logger.Errorw("reload document for delivery", "document_id", id.Hex(), "err", err)
		return
	}
	c.Notifier.DocumentFinished(ctx, d)
}

// record counts the transition and publishes it. Publish failures are
// logged only.
func (c *Coordinator) record(kind, id string, status models.Status, source models.Source, reason string) {
	metrics.Entities.WithLabelValues(kind, string(status)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := events.StatusChanged{
		Kind:      kind,
		ID:        id,
		Status:    status,
		Source:    source,
		Error:     reason,
		Timestamp: time.Now().UTC(),
	}
	if err := c.Events.Publish(ctx, ev); err != nil {
		c.Logger.Warnw("status event not published", "kind", kind, "id", id, "status", status, "err", err)
	}
}

func parseID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(kind, id)
	}
	return oid, nil
}

func (c *Coordinator) GetQueryStatus(ctx context.Context, id string) (*models.Query, error) {
	oid, err := parseID("query", id)
	if err != nil {
		return nil, err
	}
	return c.Store.Queries.Get(ctx, oid)
}

func (c *Coordinator) GetDocumentStatus(ctx context.Context, id string) (*models.Document, error) {
	oid, err := parseID("document", id)
	if err != nil {
		return nil, err
	}
	return c.Store.Documents.Get(ctx, oid)
}

func (c *Coordinator) QueryHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Query, error) {
	return c.Store.Queries.ListByUser(ctx, userID, limit)
}

func (c *Coordinator) DocumentHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error) {
	return c.Store.Documents.ListByUser(ctx, userID, limit)
}

func (c *Coordinator) RecentQueries(ctx context.Context, limit int64) ([]models.Query, error) {
	return c.Store.Queries.Recent(ctx, limit)
}

// Stats summarises activity for the admin dashboard. SuccessRate is the
// percentage of finished queries that completed.
func (c *Coordinator) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	var err error
	if st.TotalQueries, err = c.Store.Queries.Count(ctx); err != nil {
		return st, err
	}
	if st.ActiveUsers, err = c.Store.Queries.ActiveUsers(ctx); err != nil {
		return st, err
	}
	if st.DocumentsProcessed, err = c.Store.Documents.Count(ctx, models.StatusCompleted); err != nil {
		return st, err
	}
	completed, err := c.Store.Queries.Count(ctx, models.StatusCompleted)
	if err != nil {
		return st, err
	}
	failed, err := c.Store.Queries.Count(ctx, models.StatusFailed)
	if err != nil {
		return st, err
	}
	if finished := completed + failed; finished > 0 {
		st.SuccessRate = math.Round(float64(completed)/float64(finished)*1000) / 10
	}
	return st, nil
}

// Shutdown waits for in-flight processing.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return c.Executor.Shutdown(ctx)
}
