package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lessonmark/lessonmark/internal/config"
	"github.com/lessonmark/lessonmark/internal/content"
	"github.com/lessonmark/lessonmark/internal/identity"
	lmtls "github.com/lessonmark/lessonmark/internal/tls"
	"github.com/lessonmark/lessonmark/pkg/renderer"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const lessonSource = "---\ntitle: Intro\n---\n# Intro\n\n$$\nE = mc^2\n$$\n\n```{note} Remember\nBody\n```\n\n![logo](logo.png)\n"

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := content.NewFileStoreFS(fstest.MapFS{
		"physics/course.yaml": {Data: []byte("title: Physics\n")},
		"physics/intro.md":    {Data: []byte(lessonSource)},
	})
	ids, err := identity.New(config.IdentityConfig{Issuer: "lessonmark", Secret: "secret", TTL: time.Hour})
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logger)}, opts...)
	s, err := New(
		config.ServerConfig{Address: "localhost:0"},
		renderer.New(renderer.WithLogger(logger)),
		store,
		ids,
		opts...,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, h http.Handler, method, target string, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return e["code"].(string)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "version")
}

func TestRender(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	jsonHeader := http.Header{"Content-Type": {"application/json"}}

	t.Run("json body", func(t *testing.T) {
		body, err := json.Marshal(renderRequest{Source: lessonSource, Course: "physics"})
		require.NoError(t, err)

		rec := do(t, h, http.MethodPost, "/api/render", string(body), jsonHeader)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode(t, rec)
		assert.EqualValues(t, 1, resp["equations"])
		assert.NotEmpty(t, resp["elements"])
		assert.NotContains(t, resp, "error")
		assert.Equal(t, "Intro", resp["frontmatter"].(map[string]any)["title"])
	})

	t.Run("markdown body as html", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/render?format=html&course=physics", lessonSource,
			http.Header{"Content-Type": {"text/markdown"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), `<span class="equation-number">(1)</span>`)
		assert.Contains(t, rec.Body.String(), "/content/courses/physics/images/logo.png")
	})

	t.Run("equation numbering restarts per request", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := do(t, h, http.MethodPost, "/api/render?format=html", lessonSource, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "(1)")
			assert.NotContains(t, rec.Body.String(), "(2)")
		}
	})

	t.Run("failed document", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/render", "# Intro\n\xff\n", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.Contains(t, resp["error"], "failed to parse document")
		assert.Contains(t, rec.Body.String(), "render-error")
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/render", "{", jsonHeader)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", errorCode(t, rec))
	})

	t.Run("invalid format", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/render?format=pdf", "# x", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_format", errorCode(t, rec))
	})

	t.Run("too large", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/render", strings.Repeat("a", maxBodySize+1), nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestCourses(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"courses":[{"slug":"physics","title":"Physics"}]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/courses/physics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"slug":"physics","title":"Physics","units":[{"slug":"intro","title":"Intro"}]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/courses/chemistry", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	t.Run("lesson", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/courses/physics/units/intro?format=html", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1>Intro</h1>")
		assert.Contains(t, rec.Body.String(), "/content/courses/physics/images/logo.png")

		rec = do(t, h, http.MethodGet, "/api/courses/physics/units/intro", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decode(t, rec)["equations"])

		rec = do(t, h, http.MethodGet, "/api/courses/physics/units/outro", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSession(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/session", `{"provider":"github","subject":"ada"}`,
		http.Header{"Content-Type": {"application/json"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var signIn struct {
		Token   string           `json:"token"`
		Session identity.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signIn))
	require.NotEmpty(t, signIn.Token)
	auth := http.Header{"Authorization": {"Bearer " + signIn.Token}}

	rec = do(t, h, http.MethodGet, "/api/session", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, signIn.Session.ID, decode(t, rec)["id"])

	rec = do(t, h, http.MethodDelete, "/api/session", "", auth)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/session", "", auth)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = do(t, h, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/session", `{"provider":"github"}`,
		http.Header{"Content-Type": {"application/json"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTracing(t *testing.T) {
	var spans bytes.Buffer
	logger := zaptest.NewLogger(t)
	ids, err := identity.New(config.IdentityConfig{Issuer: "lessonmark", TTL: time.Hour})
	require.NoError(t, err)

	s, err := New(
		config.ServerConfig{Address: "localhost:0", Tracing: true},
		renderer.New(),
		content.NewFileStoreFS(fstest.MapFS{}),
		ids,
		WithLogger(logger),
		WithTraceWriter(&spans),
	)
	require.NoError(t, err)

	rec := do(t, s.Handler(), http.MethodPost, "/api/render", "$$\nx\n$$\n", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Contains(t, spans.String(), `"Name":"render"`)
	assert.Contains(t, spans.String(), `"Name":"POST /api/render"`)
}

func TestServer_Run(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx)
	}()

	testConnectivity(t, "http://"+s.Addr(), http.DefaultClient)

	cancel()
	require.NoError(t, <-errc)
}

func TestServer_TLS(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ServerConfig{
		Address: "localhost:0",
		TLS: config.TLSConfig{
			Enabled:  true,
			CertFile: filepath.Join(dir, "cert.pem"),
			KeyFile:  filepath.Join(dir, "key.pem"),
		},
	}
	ids, err := identity.New(config.IdentityConfig{Issuer: "lessonmark", TTL: time.Hour})
	require.NoError(t, err)

	s, err := New(cfg, renderer.New(), content.NewFileStoreFS(fstest.MapFS{}), ids, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx)
	}()

	tlsConfig, err := lmtls.LoadClientConfig(cfg.TLS.CertFile)
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}}
	testConnectivity(t, "https://"+s.Addr(), client)

	cancel()
	require.NoError(t, <-errc)
}

func testConnectivity(t *testing.T, baseURL string, client *http.Client) {
	t.Helper()

	var err error

	for i := 0; i < 5; i++ {
		var resp *http.Response
		resp, err = client.Get(baseURL + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		<-time.After(time.Millisecond * 100)
	}

	require.NoError(t, err)
}
