package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"videosum/internal/app"
	"videosum/internal/app/model"
	"videosum/internal/auth"
	"videosum/pkg/config"
	"videosum/pkg/prompts"
)

type API struct {
	cfg      *config.Config
	pipeline *app.Pipeline
	tokens   *auth.TokenManager
	oauth    OAuthProvider
	actions  []dashboardAction
	gatherer prometheus.Gatherer
	limiter  *rateLimiter
}

type signedURLRequest struct {
	Files []model.FileDescriptor `json:"files" binding:"required,min=1,dive"`
}

type itemError struct {
	Index    int    `json:"index"`
	Filename string `json:"filename,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
	Error    string `json:"error"`
}

type publishResponse struct {
	VideoID   string `json:"video_id"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	VideoID  string `json:"video_id,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

type uploadStatusResponse struct {
	VideoID  string `json:"video_id"`
	Uploaded bool   `json:"uploaded"`
	Error    string `json:"error,omitempty"`
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/healthz", api.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{})))

	r.GET("/auth/google/login", api.handleLogin)
	r.GET("/auth/google/callback", api.handleCallback)
	r.GET("/auth/logout", api.handleLogout)

	pages := r.Group("/", api.requireSession(false))
	{
		pages.GET("/", api.handleIndex)
		pages.GET("/dashboard", api.handleDashboard)
	}

	apiGroup := r.Group("/", RateLimit(api.limiter))
	if api.cfg.Auth.ProtectAPIEnabled() {
		apiGroup.Use(api.requireSession(true))
	}
	{
		apiGroup.POST("/generate-signed-urls", api.handleGenerateSignedURLs)
		apiGroup.POST("/submit-form-data", api.handleSubmitFormData)
		apiGroup.POST("/upload-files", api.handleUploadFiles)
		apiGroup.GET("/check-complete", api.handleCheckComplete)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleGenerateSignedURLs(c *gin.Context) {
	var req signedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	results := a.pipeline.RequestUploadURLs(c.Request.Context(), req.Files)

	entries := make([]model.SignedURLEntry, 0, len(results))
	failures := make([]itemError, 0)
	for i, r := range results {
		if r.Err != nil {
			failures = append(failures, itemError{Index: i, Filename: r.Filename, Error: r.Err.Error()})
			continue
		}
		entries = append(entries, r.Entry)
	}

	status := http.StatusOK
	if len(entries) == 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"files": entries, "errors": failures})
}

func (a *API) handleSubmitFormData(c *gin.Context) {
	var form model.FormData
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	results, err := a.pipeline.SubmitMetadata(c.Request.Context(), form)
	if err != nil {
		if errors.Is(err, app.ErrNoVideoIDs) || errors.Is(err, prompts.ErrInvalidOptions) {
			respondError(c, http.StatusUnprocessableEntity, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusOK
	body := make([]publishResponse, len(results))
	for i, r := range results {
		body[i] = publishResponse{VideoID: r.VideoID, MessageID: r.MessageID}
		if r.Err != nil {
			body[i].Error = r.Err.Error()
			status = http.StatusBadGateway
		}
	}
	c.JSON(status, gin.H{"results": body})
}

func (a *API) handleUploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respondMessage(c, http.StatusUnprocessableEntity, "no files uploaded")
		return
	}

	results := a.pipeline.UploadFiles(c.Request.Context(), files)

	status := http.StatusBadGateway
	body := make([]uploadResponse, len(results))
	for i, r := range results {
		body[i] = uploadResponse{Filename: r.Filename, VideoID: r.VideoID, Path: r.Path}
		if r.Err != nil {
			body[i].Error = r.Err.Error()
			continue
		}
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"files": body})
}

func (a *API) handleCheckComplete(c *gin.Context) {
	ids := c.QueryArray("video_id")
	if len(ids) == 0 {
		respondMessage(c, http.StatusUnprocessableEntity, "video_id is required")
		return
	}

	statuses := a.pipeline.CheckUploads(c.Request.Context(), ids)

	complete := true
	body := make([]uploadStatusResponse, len(statuses))
	for i, s := range statuses {
		body[i] = uploadStatusResponse{VideoID: s.VideoID, Uploaded: s.Uploaded}
		if s.Err != nil {
			body[i].Error = s.Err.Error()
		}
		complete = complete && s.Uploaded
	}
	c.JSON(http.StatusOK, gin.H{"complete": complete, "uploads": body})
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
