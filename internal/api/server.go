// Package api exposes the legal assistant over HTTP with Fiber.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/api/middleware"
	"github.com/kenyawebs/Tana-Delta/internal/conversation"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/metrics"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/responder"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

// Coordinator is the part of the coordinator the handlers drive.
type Coordinator interface {
	SubmitQuery(ctx context.Context, req coordinator.QueryRequest) (*coordinator.Receipt, error)
	SubmitDocument(ctx context.Context, req coordinator.DocumentRequest) (*coordinator.Receipt, error)
	GetQueryStatus(ctx context.Context, id string) (*models.Query, error)
	GetDocumentStatus(ctx context.Context, id string) (*models.Document, error)
	QueryHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Query, error)
	DocumentHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error)
	RecentQueries(ctx context.Context, limit int64) ([]models.Query, error)
	Stats(ctx context.Context) (models.Stats, error)
}

type Conversation interface {
	Handle(ctx context.Context, in whatsapp.Inbound) (*conversation.Result, error)
}

type SettingsService interface {
	Get(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, next models.Settings) (models.Settings, error)
}

type ResearchService interface {
	Sources() []responder.Source
	Topic(ctx context.Context, topic string, keywords []string) (*responder.TopicResult, error)
	Statute(ctx context.Context, name, section string) (*responder.StatuteResult, error)
	CaseLaw(ctx context.Context, reference string) (*responder.CaseLawResult, error)
}

type CitationLookup interface {
	ByCitation(ctx context.Context, citation string) (*responder.CaseLawResult, error)
}

type FileSaver interface {
	Save(ctx context.Context, owner primitive.ObjectID, filename, contentType string, data []byte) (models.FileInfo, error)
}

type Deps struct {
	Coordinator  Coordinator
	Conversation Conversation
	Delivery     *delivery.Adapter
	WhatsApp     whatsapp.Client
	Store        *repository.Store
	Settings     SettingsService
	Research     ResearchService
	CaseLaw      CitationLookup
	Files        FileSaver
	Auth         *middleware.AdminAuth
	RateLimit    fiber.Handler // optional
	Logger       *zap.SugaredLogger

	// Serves locally stored uploads when set.
	UploadDir string
	// Largest accepted request body, in bytes.
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	Deps
	log *zap.SugaredLogger
}

// New builds the Fiber app with every route registered.
func New(d Deps) *fiber.App {
	s := &Server{Deps: d, log: d.Logger}
	limit := d.BodyLimit
	if limit <= 0 {
		limit = 100 << 20
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             limit,
		ReadTimeout:           d.ReadTimeout,
		WriteTimeout:          d.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, isFiber := err.(*fiber.Error); isFiber {
				code = fe.Code
			}
			return fail(c, code, err.Error())
		},
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(d.Logger))

	metrics.Init()
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if d.UploadDir != "" {
		app.Static("/uploads", d.UploadDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.health)

	limited := api.Group("")
	if d.RateLimit != nil {
		limited = api.Group("", d.RateLimit)
	}

	query := limited.Group("/query")
	query.Post("/submit", s.submitQuery)
	query.Get("/history/:userId", s.queryHistory)
	query.Get("/:id", s.getQuery)

	doc := limited.Group("/document")
	doc.Post("/upload", s.uploadDocument)
	doc.Get("/history/:userId", s.documentHistory)
	doc.Get("/:id", s.getDocument)

	research := limited.Group("/research")
	research.Get("/sources", s.researchSources)
	research.Get("/topic", s.researchTopic)
	research.Get("/statute/:name", s.researchStatute)
	research.Get("/caselaw", s.researchCaseLaw)
	limited.Get("/caselaw/citation", s.caseByCitation)

	wa := api.Group("/whatsapp")
	wa.Post("/webhook", s.webhook)
	wa.Post("/send", s.sendMessage)
	wa.Post("/template", s.sendTemplate)
	wa.Post("/media", s.sendMedia)
	wa.Get("/history/:phone", s.messageHistory)

	admin := api.Group("/admin", d.Auth.Handler())
	admin.Get("/stats", s.stats)
	admin.Get("/users", s.listUsers)
	admin.Get("/queries/recent", s.recentQueries)
	admin.Get("/settings", s.getSettings)
	admin.Put("/settings", s.updateSettings)

	return app
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok", "message": "Server is running"})
}
