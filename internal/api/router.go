package api

import (
	"errors"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/mutate"
)

type Handler struct {
	cache    *cache.Cache
	pipeline *mutate.Pipeline
	auth     *auth.Client

	serviceName    string
	version        string
	maxUploadBytes int64
	upgrader       websocket.Upgrader
}

func NewHandler(c *cache.Cache, p *mutate.Pipeline, authClient *auth.Client, serviceName, version string, maxUploadMB int) *Handler {
	return &Handler{
		cache:          c,
		pipeline:       p,
		auth:           authClient,
		serviceName:    serviceName,
		version:        version,
		maxUploadBytes: int64(maxUploadMB) << 20,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is handled by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register attaches all routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/session", h.startSession)

	rg.GET("/articles", h.listArticles)
	rg.POST("/articles", h.postArticle)
	rg.DELETE("/articles/:id", h.deleteArticle)
	rg.POST("/articles/:id/like", h.likeArticle)
	rg.POST("/articles/:id/comments", h.addComment)

	rg.GET("/events", h.listEvents)
	rg.POST("/events", h.addEvent)
	rg.PUT("/events/:id", h.updateEvent)
	rg.DELETE("/events/:id", h.deleteEvent)

	rg.GET("/projects", h.listProjects)
	rg.POST("/projects", h.addProject)
	rg.PUT("/projects/:id", h.updateProject)
	rg.DELETE("/projects/:id", h.deleteProject)
	rg.POST("/projects/:id/roles", h.addProjectRole)
	rg.POST("/projects/:id/members", h.addProjectMember)

	rg.GET("/users/:email", h.getUser)
	rg.PUT("/users/:email", h.updateUser)
	rg.POST("/users/:email/certificates", h.uploadCertificates)
	rg.DELETE("/users/:email/certificates", h.deleteCertificate)

	rg.GET("/notifications", h.listNotifications)
	rg.GET("/ws", h.stream)
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
	})
}

func (h *Handler) RegisterHealth(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

// startSession upserts the caller's profile document, mirroring what the
// sign-in flow does on first authentication.
func (h *Handler) startSession(c *gin.Context) {
	who := CurrentIdentity(c)
	profile, err := h.pipeline.EnsureUser(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": who, "profile": profile})
}

func (h *Handler) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "notifications": h.cache.Notifications.Items()})
}

// uploadTooLarge applies the configured multipart cap. Zero means uncapped.
func (h *Handler) uploadTooLarge(size int64) bool {
	return h.maxUploadBytes > 0 && size > h.maxUploadBytes
}

// fail maps the pipeline's error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArticle):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrWriteRejected):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
