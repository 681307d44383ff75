package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prosteam/invitegate/internal/config"
	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/http/middleware"
	"github.com/prosteam/invitegate/internal/repo"
	"github.com/prosteam/invitegate/internal/services"
)

const apiKey = "router-test-key"

// fakeWorkflow approves or rejects a single pending UID.
type fakeWorkflow struct {
	mu        sync.Mutex
	sub       domain.Submission
	decisions int
}

func newFakeWorkflow() *fakeWorkflow {
	return &fakeWorkflow{sub: domain.Submission{
		UID:           "12345678",
		RequesterID:   7,
		RequesterName: "Ana",
		Status:        domain.StatusPending,
		SubmittedAt:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}}
}

func (f *fakeWorkflow) HandleSubmission(_ context.Context, uid string, r domain.Requester) (*domain.Submission, error) {
	if !services.ValidUID(uid) {
		return nil, services.ErrUIDFormatInvalid
	}
	s := domain.Submission{UID: uid, RequesterID: r.ID, RequesterName: r.Name, Status: domain.StatusPending}
	return &s, nil
}

func (f *fakeWorkflow) HandleDecision(_ context.Context, uid string, d domain.Decision, actorID int64) (*services.DecisionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions++
	if uid != f.sub.UID {
		return nil, services.ErrUIDUnknown
	}
	if f.sub.Status != domain.StatusPending {
		return nil, services.ErrAlreadyDecided
	}
	out := &services.DecisionOutcome{UID: uid, Decision: d}
	if d == domain.DecisionApprove {
		f.sub.Status = domain.StatusApproved
		out.Invite = &domain.Invite{URL: "https://t.me/+router"}
	} else {
		f.sub.Status = domain.StatusRejected
	}
	f.sub.DecidedBy = &actorID
	out.Status = f.sub.Status
	out.Submission = f.sub
	return out, nil
}

func (f *fakeWorkflow) Get(_ context.Context, uid string) (*domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uid != f.sub.UID {
		return nil, services.ErrUIDUnknown
	}
	s := f.sub
	return &s, nil
}

func (f *fakeWorkflow) ListPending(context.Context, int, *domain.Cursor) ([]domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub.Status != domain.StatusPending {
		return []domain.Submission{}, nil
	}
	return []domain.Submission{f.sub}, nil
}

func (f *fakeWorkflow) Stats(context.Context) (*domain.SubmissionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &domain.SubmissionStats{}
	if f.sub.Status == domain.StatusPending {
		st.Pending = 1
		at := f.sub.SubmittedAt
		st.LastSubmitted = &at
	}
	return st, nil
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIEnabled:  true,
		APIBasePath: "/api/v1",
		AdminAPIKey: apiKey,
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil},
		Security:    config.SecurityConfig{EnableHSTS: false},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newEngine(t *testing.T, cfg config.Config, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r
}

func serve(r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newEngine(t, baseConfig(), Deps{})

	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w := serve(r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/health", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r := newEngine(t, cfg, Deps{})

	w := serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "api.internal"
	req.Header.Set("Origin", "http://example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("cross-host: expected ACAO echo, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://evil.test"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be echoed, got %q", got)
	}
}

func TestRegisterRoutes_Ready(t *testing.T) {
	var fail bool
	r := newEngine(t, baseConfig(), Deps{Ready: func(context.Context) error {
		if fail {
			return errors.New("db closed")
		}
		return nil
	}})

	if w := serve(r, http.MethodGet, "/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d", w.Code)
	}
	fail = true
	w := serve(r, http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready (failing) = %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("db closed")) {
		t.Fatalf("readiness error leaked: %s", w.Body.String())
	}
}

func TestRegisterRoutes_APIDisabled_NotMounted(t *testing.T) {
	cfg := baseConfig()
	cfg.APIEnabled = false
	r := newEngine(t, cfg, Deps{Workflow: newFakeWorkflow()})

	w := serve(r, http.MethodGet, "/api/v1/submissions/stats", "", map[string]string{middleware.HeaderAPIKey: apiKey})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with API disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_SwaggerUI(t *testing.T) {
	r := newEngine(t, baseConfig(), Deps{Workflow: newFakeWorkflow()})

	w := serve(r, http.MethodGet, "/swagger/index.html", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("swagger")) {
		t.Fatalf("GET /swagger/index.html = %d", w.Code)
	}

	w = serve(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	if doc.BasePath != "/api/v1" {
		t.Fatalf("basePath = %q", doc.BasePath)
	}
	if _, ok := doc.Paths["/submissions/{uid}/decision"]["post"]; !ok {
		t.Fatalf("decision route missing from doc: %v", doc.Paths)
	}

	cfg := baseConfig()
	cfg.APIEnabled = false
	r = newEngine(t, cfg, Deps{Workflow: newFakeWorkflow()})
	if w := serve(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger must not be mounted without the API, got %d", w.Code)
	}
}

func TestRegisterRoutes_API_RequiresKey(t *testing.T) {
	r := newEngine(t, baseConfig(), Deps{Workflow: newFakeWorkflow()})

	if w := serve(r, http.MethodGet, "/api/v1/submissions", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/api/v1/submissions", "", map[string]string{middleware.HeaderAPIKey: apiKey})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d: %s", w.Code, w.Body.String())
	}
	// Static route wins over the :uid sibling.
	w = serve(r, http.MethodGet, "/api/v1/submissions/stats", "", map[string]string{"Authorization": "Bearer " + apiKey})
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"pending":1`)) {
		t.Fatalf("stats: code=%d body=%s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodGet, "/api/v1/submissions/12345678", "", map[string]string{middleware.HeaderAPIKey: apiKey})
	if w.Code != http.StatusOK {
		t.Fatalf("get: code=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_DecisionReplay(t *testing.T) {
	wf := newFakeWorkflow()
	store := repo.NewIdempotencyStore(newTestDB(t), time.Hour)
	r := newEngine(t, baseConfig(), Deps{Workflow: wf, Idempotency: store})

	hdr := map[string]string{
		middleware.HeaderAPIKey:         apiKey,
		middleware.HeaderIdempotencyKey: "decide-1",
	}
	body := `{"decision":"approve","actor_id":99}`

	first := serve(r, http.MethodPost, "/api/v1/submissions/12345678/decision", body, hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("first decision: code=%d body=%s", first.Code, first.Body.String())
	}
	if !bytes.Contains(first.Body.Bytes(), []byte("t.me/+router")) {
		t.Fatalf("expected invite on first call: %s", first.Body.String())
	}

	second := serve(r, http.MethodPost, "/api/v1/submissions/12345678/decision", body, hdr)
	if second.Code != http.StatusOK {
		t.Fatalf("replay: code=%d body=%s", second.Code, second.Body.String())
	}
	if second.Header().Get(middleware.HeaderReplayed) != "true" {
		t.Fatalf("expected %s header on replay", middleware.HeaderReplayed)
	}
	var resp struct {
		Status   domain.Status `json:"status"`
		Replayed bool          `json:"replayed"`
		Invite   any           `json:"invite"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Replayed || resp.Status != domain.StatusApproved || resp.Invite != nil {
		t.Fatalf("unexpected replay body: %s", second.Body.String())
	}
	if wf.decisions != 1 {
		t.Fatalf("workflow ran %d times, want 1", wf.decisions)
	}

	// A fresh key reaches the workflow and gets the conflict.
	hdr[middleware.HeaderIdempotencyKey] = "decide-2"
	third := serve(r, http.MethodPost, "/api/v1/submissions/12345678/decision", body, hdr)
	if third.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a new key, got %d", third.Code)
	}
}

func TestRegisterRoutes_RateLimited(t *testing.T) {
	cfg := baseConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newEngine(t, cfg, Deps{Workflow: newFakeWorkflow()})

	hdr := map[string]string{middleware.HeaderAPIKey: apiKey}
	if w := serve(r, http.MethodGet, "/api/v1/submissions/stats", "", hdr); w.Code != http.StatusOK {
		t.Fatalf("first call = %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/api/v1/submissions/stats", "", hdr)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	// Health stays outside the limiter.
	if w := serve(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", "0123456789AB", nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
