package api

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

type uploadForm struct {
	Title        string `form:"title" json:"title" validate:"required"`
	Description  string `form:"description" json:"description"`
	DocumentType string `form:"documentType" json:"documentType"`
	UserID       string `form:"userId" json:"userId"`
}

// POST /api/document/upload (multipart/form-data with "file")
func (s *Server) uploadDocument(c *fiber.Ctx) error {
	var form uploadForm
	if err := c.BodyParser(&form); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid form")
	}
	if err := check(form); err != nil {
		return s.respondErr(c, err)
	}
	userID, err := optionalID("userId", form.UserID)
	if err != nil {
		return s.respondErr(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return s.respondErr(c, apperr.Invalid("file", "is required"))
	}
	// limits are checked before anything is stored
	probe := coordinator.DocumentRequest{
		Title:        form.Title,
		Description:  form.Description,
		DocumentType: models.DocumentType(form.DocumentType),
		File:         models.FileInfo{Name: fh.Filename, Size: fh.Size},
	}
	if err := s.precheck(c, probe); err != nil {
		return s.respondErr(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "cannot open file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "cannot read file")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}

	info, err := s.Files.Save(c.UserContext(), userID, fh.Filename, ct, data)
	if err != nil {
		return s.respondErr(c, err)
	}

	probe.UserID = userID
	probe.Source = models.SourceWeb
	probe.File = info
	rcpt, err := s.Coordinator.SubmitDocument(c.UserContext(), probe)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusAccepted, fiber.Map{
		"documentId":    rcpt.ID,
		"status":        rcpt.Status,
		"estimatedTime": rcpt.EstimatedTime,
		"message":       rcpt.Message,
	})
}

// precheck applies the field and file limits without storing anything.
func (s *Server) precheck(c *fiber.Ctx, req coordinator.DocumentRequest) error {
	st, err := s.Settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	if st.MaintenanceMode {
		return apperr.ErrMaintenance
	}
	return coordinator.CheckDocument(req, st)
}

func (s *Server) getDocument(c *fiber.Ctx) error {
	id, err := requireID(c, "id")
	if err != nil {
		return s.respondErr(c, err)
	}
	d, err := s.Coordinator.GetDocumentStatus(c.UserContext(), id)
	if err != nil {
		return s.respondErr(c, err)
	}
	var view delivery.DocumentView
	if s.Delivery != nil {
		view = s.Delivery.DocumentView(c.UserContext(), d)
	} else {
		view = delivery.DocumentView{Document: d}
	}
	return ok(c, fiber.StatusOK, view)
}

func (s *Server) documentHistory(c *fiber.Ctx) error {
	id, err := requireID(c, "userId")
	if err != nil {
		return s.respondErr(c, err)
	}
	userID, _ := primitive.ObjectIDFromHex(id)
	list, err := s.Coordinator.DocumentHistory(c.UserContext(), userID, limitParam(c, defaultHistoryLimit))
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, list)
}
