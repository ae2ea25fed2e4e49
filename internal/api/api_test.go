package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/api/middleware"
	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/conversation"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/executor"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/responder"
	"github.com/kenyawebs/Tana-Delta/internal/settings"
	"github.com/kenyawebs/Tana-Delta/internal/storage"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

const testSecret = "test-secret"

type env struct {
	app    *fiber.App
	store  *repository.Store
	client *whatsapp.SimulatedClient
	files  *countingSaver
	token  string
}

// countingSaver counts files handed to storage.
type countingSaver struct {
	FileSaver
	n atomic.Int32
}

func (c *countingSaver) Save(ctx context.Context, owner primitive.ObjectID, filename, contentType string, data []byte) (models.FileInfo, error) {
	c.n.Add(1)
	return c.FileSaver.Save(ctx, owner, filename, contentType, data)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop().Sugar()
	tmpl, err := responder.LoadTemplates()
	require.NoError(t, err)

	caches := cache.NewMemoryProvider()
	store := repository.NewMemoryStore()
	svc := settings.NewService(store.Settings)
	client := whatsapp.NewSimulatedClient(log)

	dir := t.TempDir()
	local, err := storage.NewLocalStore(dir, "http://localhost/uploads")
	require.NoError(t, err)
	adapter := delivery.New(client, store, local, log)

	research := responder.NewResearch(tmpl, caches.Category("research"), log)
	caseLaw := responder.NewCaseLaw(tmpl, research, caches.Category("caselaw"), log)
	coord := coordinator.New(coordinator.Deps{
		Store:           store,
		Settings:        svc,
		Reasoning:       responder.NewReasoning(tmpl, caches.Category("reasoning"), log),
		Documents:       responder.NewDocuments(tmpl, caches.Category("documents"), log),
		CaseLaw:         caseLaw,
		Executor:        executor.New(2, log),
		Notifier:        adapter,
		Logger:          log,
		QueryTimeout:    5 * time.Second,
		DocumentTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = coord.Shutdown(ctx)
	})

	auth := middleware.NewAdminAuth(testSecret, "legal-agent", log)
	token, err := auth.Issue("admin-1", time.Hour)
	require.NoError(t, err)

	files := &countingSaver{FileSaver: storage.NewUploader(local, log)}
	app := New(Deps{
		Coordinator:  coord,
		Conversation: conversation.NewHandler(store, coord, adapter, log),
		Delivery:     adapter,
		WhatsApp:     client,
		Store:        store,
		Settings:     svc,
		Research:     research,
		CaseLaw:      caseLaw,
		Files:        files,
		Auth:         auth,
		Logger:       log,
		UploadDir:    dir,
	})
	return &env{app: app, store: store, client: client, files: files, token: token}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (e *env) json(t *testing.T, method, path string, payload any, token string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	code, body := e.do(t, req)
	var out envelope
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return code, out
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","message":"Server is running"}`, string(body))
}

func TestQueryEndpoints(t *testing.T) {
	e := newEnv(t)

	t.Run("submit then poll until completed", func(t *testing.T) {
		code, res := e.json(t, http.MethodPost, "/api/query/submit", fiber.Map{"queryText": "What is the definition of robbery?"}, "")
		require.Equal(t, http.StatusAccepted, code)

		var rcpt struct {
			QueryID       string        `json:"queryId"`
			Status        models.Status `json:"status"`
			EstimatedTime int           `json:"estimatedTime"`
		}
		require.NoError(t, json.Unmarshal(res.Data, &rcpt))
		assert.Equal(t, models.StatusReceived, rcpt.Status)
		assert.Positive(t, rcpt.EstimatedTime)

		var q models.Query
		require.Eventually(t, func() bool {
			code, res := e.json(t, http.MethodGet, "/api/query/"+rcpt.QueryID, nil, "")
			if code != http.StatusOK || json.Unmarshal(res.Data, &q) != nil {
				return false
			}
			return q.Status == models.StatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
		assert.Contains(t, q.Answer, "Section 296")
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		code, res := e.json(t, http.MethodPost, "/api/query/submit", fiber.Map{"queryText": ""}, "")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "error", res.Status)
		assert.Contains(t, res.Message, "queryText")
	})

	t.Run("malformed id", func(t *testing.T) {
		code, _ := e.json(t, http.MethodGet, "/api/query/not-an-id", nil, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown id", func(t *testing.T) {
		code, _ := e.json(t, http.MethodGet, "/api/query/"+primitive.NewObjectID().Hex(), nil, "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func upload(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/document/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDocumentUpload(t *testing.T) {
	e := newEnv(t)

	t.Run("charge sheet is stored and analysed", func(t *testing.T) {
		req := upload(t, map[string]string{
			"title":        "Charge sheet",
			"documentType": "charge_sheet",
		}, "charge.txt", "Accused charged with robbery contrary to section 296(2)")
		code, body := e.do(t, req)
		require.Equal(t, http.StatusAccepted, code, string(body))

		var res struct {
			Data struct {
				DocumentID string `json:"documentId"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &res))

		var doc struct {
			models.Document
			DownloadURL string `json:"downloadUrl"`
		}
		require.Eventually(t, func() bool {
			code, got := e.json(t, http.MethodGet, "/api/document/"+res.Data.DocumentID, nil, "")
			if code != http.StatusOK || json.Unmarshal(got.Data, &doc) != nil {
				return false
			}
			return doc.Status == models.StatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
		assert.Len(t, doc.Recommendations, 5)
		assert.Equal(t, "charge.txt", doc.File.Name)
		assert.True(t, strings.HasPrefix(doc.File.URL, "http://localhost/uploads/documents/anonymous/"))
	})

	t.Run("rejected uploads store nothing", func(t *testing.T) {
		before := e.files.n.Load()

		code, body := e.do(t, upload(t, map[string]string{"title": "Script"}, "run.exe", "MZ"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(body), "not allowed")

		code, body = e.do(t, upload(t, map[string]string{"title": strings.Repeat("t", 150)}, "long.txt", "x"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(body), "title")

		code, body = e.do(t, upload(t, map[string]string{"title": "Memo", "documentType": "not_a_type"}, "memo.txt", "x"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(body), "documentType")

		assert.Equal(t, before, e.files.n.Load())
	})

	t.Run("missing file", func(t *testing.T) {
		code, body := e.do(t, upload(t, map[string]string{"title": "Nothing"}, "", ""))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, string(body), "file")
	})

	t.Run("missing title", func(t *testing.T) {
		code, _ := e.do(t, upload(t, nil, "a.txt", "x"))
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestWhatsAppEndpoints(t *testing.T) {
	e := newEnv(t)

	webhook := func(payload string) (int, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		code, body := e.do(t, req)
		var out map[string]any
		require.NoError(t, json.Unmarshal(body, &out), string(body))
		return code, out
	}

	t.Run("greeting", func(t *testing.T) {
		code, out := webhook(`{"from":"0712345678","body":"Hello","message_type":"text"}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "greeting", out["intent"])
		require.Len(t, e.client.Sent(), 1)
		assert.Equal(t, "254712345678", e.client.Sent()[0].To)
	})

	t.Run("a bad message does not stop the rest of a batch", func(t *testing.T) {
		code, out := webhook(`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[
			{"from":"not-a-phone","type":"text","text":{"body":"Hello"}},
			{"from":"254733000111","type":"text","text":{"body":"Hi there"}}
		]}}]}]}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "greeting", out["intent"])

		n := 0
		for _, m := range e.client.Sent() {
			if m.To == "254733000111" {
				n++
			}
		}
		assert.Equal(t, 1, n)
	})

	t.Run("a batch with no usable message is rejected", func(t *testing.T) {
		code, _ := webhook(`{"from":"not-a-phone","body":"Hello"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("status notification is acknowledged", func(t *testing.T) {
		code, out := webhook(`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[]}}]}]}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, out["success"])
		assert.NotContains(t, out, "intent")
	})

	t.Run("garbage body", func(t *testing.T) {
		code, _ := webhook(`not json`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("history lists both directions", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/whatsapp/history/0712345678", nil, "")
		require.Equal(t, http.StatusOK, code)
		var msgs []models.WhatsAppMessage
		require.NoError(t, json.Unmarshal(res.Data, &msgs))
		assert.Len(t, msgs, 2)
	})

	t.Run("send", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/send", strings.NewReader(`{"phone":"+254700111222","message":"Your hearing is on Monday"}`))
		req.Header.Set("Content-Type", "application/json")
		code, body := e.do(t, req)
		require.Equal(t, http.StatusOK, code, string(body))
		var out struct {
			Success   bool   `json:"success"`
			MessageID string `json:"messageId"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		assert.True(t, out.Success)
		assert.True(t, strings.HasPrefix(out.MessageID, "wamid."))
	})

	t.Run("media", func(t *testing.T) {
		code, body := e.do(t, jsonRequest(http.MethodPost, "/api/whatsapp/media",
			`{"to":"0700111222","mediaType":"document","link":"https://files.example/ruling.pdf","caption":"Ruling"}`))
		require.Equal(t, http.StatusOK, code, string(body))
		sent := e.client.Sent()
		last := sent[len(sent)-1]
		assert.Equal(t, "document", last.Type)
		assert.Equal(t, "https://files.example/ruling.pdf", last.Link)

		code, _ = e.do(t, jsonRequest(http.MethodPost, "/api/whatsapp/media",
			`{"to":"0700111222","mediaType":"location","link":"https://files.example/x"}`))
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("send without recipient", func(t *testing.T) {
		code, res := e.json(t, http.MethodPost, "/api/whatsapp/send", fiber.Map{"message": "hi"}, "")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, res.Message, "to")
	})

	t.Run("template", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/template", strings.NewReader(`{"to":"0700111222","template":"hearing_reminder"}`))
		req.Header.Set("Content-Type", "application/json")
		code, _ := e.do(t, req)
		require.Equal(t, http.StatusOK, code)
		sent := e.client.Sent()
		assert.Equal(t, "hearing_reminder", sent[len(sent)-1].Template)
	})
}

func TestAdminEndpoints(t *testing.T) {
	e := newEnv(t)

	t.Run("requires a token", func(t *testing.T) {
		code, _ := e.json(t, http.MethodGet, "/api/admin/stats", nil, "")
		assert.Equal(t, http.StatusUnauthorized, code)

		code, _ = e.json(t, http.MethodGet, "/api/admin/stats", nil, "not.a.token")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("stats", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/admin/stats", nil, e.token)
		require.Equal(t, http.StatusOK, code)
		var st models.Stats
		require.NoError(t, json.Unmarshal(res.Data, &st))
		assert.Zero(t, st.TotalQueries)
	})

	t.Run("users are paged", func(t *testing.T) {
		ctx := context.Background()
		for _, p := range []string{"254700000001", "254700000002", "254700000003"} {
			require.NoError(t, e.store.Users.Create(ctx, &models.User{Phone: p}))
		}
		code, res := e.json(t, http.MethodGet, "/api/admin/users?page=2&limit=2", nil, e.token)
		require.Equal(t, http.StatusOK, code)
		var page struct {
			Users []models.User `json:"users"`
			Total int64         `json:"total"`
			Page  int64         `json:"page"`
		}
		require.NoError(t, json.Unmarshal(res.Data, &page))
		assert.Len(t, page.Users, 1)
		assert.EqualValues(t, 3, page.Total)
		assert.EqualValues(t, 2, page.Page)
	})

	t.Run("settings update is validated", func(t *testing.T) {
		code, _ := e.json(t, http.MethodPut, "/api/admin/settings", fiber.Map{"maxQueryLength": 0}, e.token)
		assert.Equal(t, http.StatusBadRequest, code)

		code, res := e.json(t, http.MethodGet, "/api/admin/settings", nil, e.token)
		require.Equal(t, http.StatusOK, code)
		var st models.Settings
		require.NoError(t, json.Unmarshal(res.Data, &st))
		assert.Equal(t, models.DefaultSettings().MaxQueryLength, st.MaxQueryLength)
	})

	t.Run("disabling whatsapp closes the webhook", func(t *testing.T) {
		code, res := e.json(t, http.MethodPut, "/api/admin/settings", fiber.Map{"whatsappEnabled": false}, e.token)
		require.Equal(t, http.StatusOK, code)
		var st models.Settings
		require.NoError(t, json.Unmarshal(res.Data, &st))
		assert.False(t, st.WhatsAppEnabled)
		assert.True(t, st.NotificationsEnabled)

		req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(`{"from":"0712345678","body":"Hello"}`))
		req.Header.Set("Content-Type", "application/json")
		code, _ = e.do(t, req)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("maintenance blocks submissions", func(t *testing.T) {
		code, _ := e.json(t, http.MethodPut, "/api/admin/settings", fiber.Map{"maintenanceMode": true}, e.token)
		require.Equal(t, http.StatusOK, code)

		code, _ = e.json(t, http.MethodPost, "/api/query/submit", fiber.Map{"queryText": "What is theft?"}, "")
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestResearchEndpoints(t *testing.T) {
	e := newEnv(t)

	t.Run("sources", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/research/sources", nil, "")
		require.Equal(t, http.StatusOK, code)
		var sources []responder.Source
		require.NoError(t, json.Unmarshal(res.Data, &sources))
		assert.Len(t, sources, 4)
	})

	t.Run("topic with keywords", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/research/topic?topic=bail%20terms&keywords=remand,%20bond", nil, "")
		require.Equal(t, http.StatusOK, code)
		var topic responder.TopicResult
		require.NoError(t, json.Unmarshal(res.Data, &topic))
		assert.Equal(t, []string{"remand", "bond"}, topic.Keywords)
		require.Len(t, topic.Regulations, 1)
		assert.Equal(t, "Bail and Bond Policy Guidelines", topic.Regulations[0].Title)
	})

	t.Run("topic is required", func(t *testing.T) {
		code, _ := e.json(t, http.MethodGet, "/api/research/topic", nil, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("statute section", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/research/statute/Penal%20Code?section=296", nil, "")
		require.Equal(t, http.StatusOK, code)
		var st responder.StatuteResult
		require.NoError(t, json.Unmarshal(res.Data, &st))
		assert.True(t, st.Found)
		assert.Equal(t, "Penal Code", st.StatuteName)
		assert.Contains(t, st.Content, "Section 296. Robbery.")
	})

	t.Run("reported cases", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/research/caselaw?reference=manslaughter", nil, "")
		require.Equal(t, http.StatusOK, code)
		var cl responder.CaseLawResult
		require.NoError(t, json.Unmarshal(res.Data, &cl))
		assert.True(t, cl.Found)
	})

	t.Run("case by citation", func(t *testing.T) {
		code, res := e.json(t, http.MethodGet, "/api/caselaw/citation?citation=%5B2017%5D%20eKLR", nil, "")
		require.Equal(t, http.StatusOK, code)
		var cl responder.CaseLawResult
		require.NoError(t, json.Unmarshal(res.Data, &cl))
		require.True(t, cl.Found)
		assert.Equal(t, "Francis Karioko Muruatetu & another v Republic", cl.Cases[0].Title)
	})

	t.Run("citation is required", func(t *testing.T) {
		code, _ := e.json(t, http.MethodGet, "/api/caselaw/citation", nil, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
