package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/notify"
	"github.com/jsamuelsen/quotekeeper/internal/app"
)

const defaultNotificationLimit = 20

// Syncer is what the sync endpoints need from app.Reconciler.
type Syncer interface {
	SyncNow(ctx context.Context) app.SyncResult
	Status() (app.SyncState, *app.SyncResult)
	Interval() time.Duration
}

// NotificationFeed is the in-memory list of recent sync notifications.
type NotificationFeed interface {
	Recent(limit int) []notify.Notification
}

// SyncHandler serves manual sync, sync status and the notification feed.
type SyncHandler struct {
	syncer  Syncer
	feed    NotificationFeed
	enabled bool
}

// NewSyncHandler creates a sync handler. enabled reports whether the timer
// is armed; manual sync works either way.
func NewSyncHandler(syncer Syncer, feed NotificationFeed, enabled bool) *SyncHandler {
	return &SyncHandler{syncer: syncer, feed: feed, enabled: enabled}
}

// RegisterRoutes mounts the sync endpoints on rg.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync", h.Status)
	rg.POST("/sync", h.SyncNow)
	rg.GET("/notifications", h.Notifications)
}

// Status handles GET /api/v1/sync.
func (h *SyncHandler) Status(c *gin.Context) {
	state, last := h.syncer.Status()

	c.JSON(http.StatusOK, dto.NewSyncStatusResponse(h.enabled, state, h.syncer.Interval(), last))
}

// SyncNow handles POST /api/v1/sync. It runs a cycle and answers with its
// result. A fetch failure is not an HTTP error: the cycle recovered and the
// result's error field says why nothing was added. If a cycle was already
// running the answer is 409 with skipped=true.
func (h *SyncHandler) SyncNow(c *gin.Context) {
	result := h.syncer.SyncNow(c.Request.Context())

	status := http.StatusOK
	if result.Skipped {
		status = http.StatusConflict
	}

	c.JSON(status, result)
}

// Notifications handles GET /api/v1/notifications?limit=, newest first.
func (h *SyncHandler) Notifications(c *gin.Context) {
	var req dto.NotificationsQuery
	if err := dto.BindQuery(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultNotificationLimit
	}

	items := h.feed.Recent(limit)
	if items == nil {
		items = []notify.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
