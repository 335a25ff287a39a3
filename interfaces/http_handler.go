package interfaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"referral-intake/application"
	"referral-intake/domain"
	"referral-intake/infrastructure"
)

// multipart parts beyond this are spilled to temp files by net/http
const multipartMemory = 8 << 20

// HandlerDeps wires the HTTP surface. Health and MetricsHandler are optional.
type HandlerDeps struct {
	Intake         application.IntakePipeline
	Referrals      application.ReferralService
	Health         func(ctx context.Context) error
	MetricsHandler http.Handler
	Metrics        *infrastructure.Metrics
	MaxUploadBytes int64
	Logger         *zap.Logger
}

type HTTPHandler struct {
	deps   HandlerDeps
	logger *zap.Logger
}

// NewHTTPHandler registers the referral API on router.
func NewHTTPHandler(router *gin.Engine, deps HandlerDeps) *HTTPHandler {
	h := &HTTPHandler{deps: deps, logger: deps.Logger.Named("http")}

	api := router.Group("/api/referrals")
	api.POST("", h.Submit)
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.PATCH("/:id", h.UpdateStatus)

	router.GET("/healthz", h.Healthz)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}
	return h
}

// Submit accepts the multipart referral form plus the resume file.
func (h *HTTPHandler) Submit(c *gin.Context) {
	if h.deps.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.deps.Metrics.ObserveSubmission(application.OutcomeInvalid)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form: " + err.Error()})
		return
	}

	resume, err := readResume(c, "resume")
	if err != nil {
		h.logger.Error("Failed to read resume upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read resume"})
		return
	}

	sub := domain.Submission{
		CandidateName:  c.PostForm("candidate_name"),
		CandidateEmail: c.PostForm("candidate_email"),
		RoleTitle:      c.PostForm("role_title"),
		WhyFit:         c.PostForm("why_fit"),
		Context:        domain.RelationshipContext(c.PostForm("context")),
		Resume:         resume,
	}

	// A missing resume outranks every other problem, so job_ids errors are
	// only reported once a resume is present.
	jobIDs, err := domain.ParseJobIDs(c.PostForm("job_ids"))
	if err != nil && resume != nil && len(resume.Data) > 0 {
		h.deps.Metrics.ObserveSubmission(application.OutcomeInvalid)
		h.respondError(c, err)
		return
	}
	sub.JobIDs = jobIDs

	ref, err := h.deps.Intake.Submit(c.Request.Context(), sub)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": ref.ID})
}

func readResume(c *gin.Context, field string) (*domain.ResumeFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &domain.ResumeFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// List returns every referral ranked by fit score.
func (h *HTTPHandler) List(c *gin.Context) {
	refs, err := h.deps.Referrals.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if refs == nil {
		refs = []domain.Referral{}
	}
	c.JSON(http.StatusOK, refs)
}

func (h *HTTPHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ref, err := h.deps.Referrals.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// UpdateStatus applies a reviewer decision: {"status": "approved"}.
func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ref, err := h.deps.Referrals.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "referral": ref})
}

func (h *HTTPHandler) Healthz(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health(c.Request.Context()); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps domain errors onto HTTP status codes.
func (h *HTTPHandler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		vErr *domain.ValidationError
		sErr *domain.StorageError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "referral not found"})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &sErr):
		h.logger.Error("Storage failure", zap.String("op", sErr.Op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
