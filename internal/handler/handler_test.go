package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/handler"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/router"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/chat"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func (s *tokenStore) Save(ctx context.Context, key, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = email
	return nil
}

func (s *tokenStore) Consume(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.entries[key]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	delete(s.entries, key)
	return email, nil
}

type mailer struct {
	mu   sync.Mutex
	link string
}

func (m *mailer) SendMagicLink(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = link
	return nil
}

type server struct {
	t       *testing.T
	db      *gorm.DB
	repo    *repository.Repositories
	model   *testutil.ScriptedChatModel
	mailer  *mailer
	engine  *gin.Engine
	healthy error
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := repository.NewRepositories(db)
	cm := &testutil.ScriptedChatModel{Chunks: testutil.TextChunks("stop", "Hello ", "there, ", "friend.")}
	s := &server{t: t, db: db, repo: repo, model: cm, mailer: &mailer{}}

	log := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	catalog, err := llm.NewCatalog(config.DefaultModels(), "sonnet-3.7")
	require.NoError(t, err)
	provider := llm.NewProviderWithModels(catalog, map[string]model.BaseChatModel{
		"sonnet-3.7":  cm,
		"deepseek-r1": cm,
	})

	sessions := session.NewManager(repo.Chat, log, m)
	recorder := chat.NewRecorder(repo.Chat, chat.RecorderConfig{TitleMaxLength: 50}, log, m)
	orchestrator := chat.NewOrchestrator(sessions, recorder, repo.Chat, catalog, provider,
		chat.OrchestratorConfig{SystemPrompt: "be brief"}, log, m)

	authSvc, err := auth.NewService(repo.User, &tokenStore{entries: map[string]string{}}, s.mailer, auth.Config{
		Secret:      []byte("handler-test-secret"),
		AccessTTL:   time.Hour,
		LinkTTL:     time.Minute,
		RedirectURL: "http://localhost:3000/auth/callback",
	}, log, m)
	require.NoError(t, err)

	svcs := &service.Services{
		Chat:         chat.NewService(repo.Chat),
		Orchestrator: orchestrator,
		Recorder:     recorder,
		Sessions:     sessions,
		Auth:         authSvc,
		Provider:     provider,
		Catalog:      catalog,
	}
	h := handler.NewHandlers(svcs, log, map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return s.healthy },
	})
	s.engine = router.SetupRouter(h, router.Options{
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		Tokens:         authSvc,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return s
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// signIn 走完 magic link 流程，返回访问令牌和用户 ID
func (s *server) signIn(email string) (token, userID string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/magic-link", "", gin.H{"email": email})
	require.Equal(s.t, http.StatusAccepted, w.Code, w.Body.String())

	u, err := url.Parse(s.mailer.link)
	require.NoError(s.t, err)

	w = s.do(http.MethodPost, "/api/auth/verify", "", gin.H{"token": u.Query().Get("token")})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(s.t, w, &out)
	return out.Token, out.User.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out handler.ErrorResponse
	decode(t, w, &out)
	return out.Code
}

// closeDB 关闭底层连接，之后的读写都会失败
func (s *server) closeDB() {
	s.t.Helper()
	sqlDB, err := s.db.DB()
	require.NoError(s.t, err)
	require.NoError(s.t, sqlDB.Close())
}

var errDown = errors.New("connection refused")
