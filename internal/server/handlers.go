package server

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/internal/content"
	"github.com/lessonmark/lessonmark/internal/identity"
	"github.com/lessonmark/lessonmark/pkg/renderer"
)

const (
	formatJSON = "json"
	formatHTML = "html"
)

type renderRequest struct {
	Source string `json:"source"`
	Course string `json:"course"`
}

type renderResponse struct {
	*renderer.Result
	Error string `json:"error,omitempty"`
}

type signInRequest struct {
	Provider string `json:"provider" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
}

type signInResponse struct {
	Token   string            `json:"token"`
	Session *identity.Session `json:"session"`
}

func (s *Server) handleRender(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var req renderRequest
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	} else {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, http.StatusRequestEntityTooLarge, "invalid_request", errors.Wrap(err, "failed to read body"))
			return
		}
		req.Source = string(data)
		req.Course = c.Query("course")
	}

	s.render(c, []byte(req.Source), req.Course, format)
}

func (s *Server) handleCourses(c *gin.Context) {
	courses, err := s.store.Courses(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	if courses == nil {
		courses = []content.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (s *Server) handleCourse(c *gin.Context) {
	course, err := s.store.CourseSummary(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) handleLesson(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}

	slug := c.Param("slug")
	lesson, err := s.store.Lesson(c.Request.Context(), slug, c.Param("unit"))
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.render(c, lesson.Source, slug, format)
}

func (s *Server) render(c *gin.Context, source []byte, course, format string) {
	_, span := s.tracing.start(c.Request.Context(), "render",
		attribute.String("course", course),
		attribute.Int("source.size", len(source)),
	)
	result := s.renderer.Render(source, course)
	span.SetAttributes(
		attribute.Int("equations", result.Equations),
		attribute.Int("diagnostics", len(result.Diagnostics)),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "render failed")
		s.logger.Warn("rendered error block", zap.String("course", course), zap.Error(result.Err))
	}
	span.End()

	if format == formatHTML {
		var buf bytes.Buffer
		if err := result.WriteHTML(&buf); err != nil {
			respondError(c, http.StatusInternalServerError, "internal", errors.Wrap(err, "failed to write html"))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
		return
	}

	resp := renderResponse{Result: result}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	token, session, err := s.identity.SignIn(c.Request.Context(), req.Provider, req.Subject)
	if errors.Is(err, identity.ErrInvalidSignIn) {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to sign in"))
		return
	}

	c.JSON(http.StatusCreated, signInResponse{Token: token, Session: session})
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet(sessionKey))
}

func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.identity.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", errors.New("session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, content.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	_ = c.Error(err)
	s.logger.Error("content store failed", zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to load content"))
}

func outputFormat(c *gin.Context) (string, bool) {
	format := c.DefaultQuery("format", formatJSON)
	switch format {
	case formatJSON, formatHTML:
		return format, true
	default:
		respondError(c, http.StatusBadRequest, "invalid_format", errors.Errorf("unsupported format %q", format))
		return "", false
	}
}
