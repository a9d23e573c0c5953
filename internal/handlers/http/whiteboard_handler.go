package http

import (
	stderrors "errors"
	"net/http"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/middleware"
	"sketchroom/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SnapshotRecorder observes successful snapshot saves.
type SnapshotRecorder interface {
	RecordSnapshotSaved(bytes int)
}

// Presence reports who is connected to a whiteboard's live room.
type Presence interface {
	RoomMembers(roomID domain.WhiteboardID) []domain.UserID
}

type WhiteboardHandler struct {
	whiteboardService ports.WhiteboardService
	recorder          SnapshotRecorder
	presence          Presence
	logger            *zap.SugaredLogger
}

func NewWhiteboardHandler(
	whiteboardService ports.WhiteboardService,
	recorder SnapshotRecorder,
	presence Presence,
	logger *zap.SugaredLogger,
) *WhiteboardHandler {
	return &WhiteboardHandler{
		whiteboardService: whiteboardService,
		recorder:          recorder,
		presence:          presence,
		logger:            logger,
	}
}

// SetupRoutes mounts the whiteboard routes on a group that already runs
// the auth middleware.
func (h *WhiteboardHandler) SetupRoutes(router gin.IRouter) {
	wb := router.Group("/whiteboards")
	{
		wb.POST("", h.Create)
		wb.GET("", h.List)
		wb.GET("/:id", h.Get)
		wb.PUT("/:id", h.Update)
		wb.DELETE("/:id", h.Delete)
		wb.PUT("/:id/share", h.Share)
		wb.POST("/:id/saveState", h.SaveState)
		wb.GET("/:id/getState", h.GetState)
		wb.GET("/:id/members", h.Members)
	}
}

type WhiteboardRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ShareRequest struct {
	Username string `json:"username" binding:"required"`
}

type StateRequest struct {
	CanvasData string `json:"canvasData" binding:"required"`
}

type WhiteboardResponse struct {
	ID         domain.WhiteboardID `json:"id"`
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Owner      domain.UserID       `json:"owner"`
	SharedWith []domain.UserID     `json:"sharedWith"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func newWhiteboardResponse(wb *domain.Whiteboard) WhiteboardResponse {
	shared := wb.SharedWith
	if shared == nil {
		shared = []domain.UserID{}
	}
	return WhiteboardResponse{
		ID:         wb.ID,
		Title:      wb.Title,
		Content:    wb.Content,
		Owner:      wb.Owner,
		SharedWith: shared,
		CreatedAt:  wb.CreatedAt,
		UpdatedAt:  wb.UpdatedAt,
	}
}

func (h *WhiteboardHandler) Create(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req WhiteboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	wb, err := h.whiteboardService.Create(c.Request.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"whiteboard": newWhiteboardResponse(wb)})
}

func (h *WhiteboardHandler) List(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	boards, err := h.whiteboardService.List(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]WhiteboardResponse, 0, len(boards))
	for _, wb := range boards {
		resp = append(resp, newWhiteboardResponse(wb))
	}
	c.JSON(http.StatusOK, gin.H{"whiteboards": resp})
}

func (h *WhiteboardHandler) Get(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	wb, err := h.whiteboardService.Get(c.Request.Context(), user.ID, domain.WhiteboardID(c.Param("id")))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"whiteboard": newWhiteboardResponse(wb)})
}

func (h *WhiteboardHandler) Update(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req WhiteboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	wb, err := h.whiteboardService.Update(c.Request.Context(), user.ID, domain.WhiteboardID(c.Param("id")), req.Title, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"whiteboard": newWhiteboardResponse(wb)})
}

func (h *WhiteboardHandler) Delete(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	if err := h.whiteboardService.Delete(c.Request.Context(), user.ID, domain.WhiteboardID(c.Param("id"))); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "whiteboard deleted"})
}

func (h *WhiteboardHandler) Share(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("username is required"))
		return
	}

	wb, err := h.whiteboardService.Share(c.Request.Context(), user.ID, domain.WhiteboardID(c.Param("id")), req.Username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"whiteboard": newWhiteboardResponse(wb)})
}

func (h *WhiteboardHandler) SaveState(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("canvasData is required"))
		return
	}

	id := domain.WhiteboardID(c.Param("id"))
	if err := h.whiteboardService.SaveSnapshot(c.Request.Context(), user.ID, id, []byte(req.CanvasData)); err != nil {
		if stderrors.Is(err, domain.ErrPersistence) {
			h.logger.Warnw("snapshot save failed", "whiteboard_id", id, "user_id", user.ID, "error", err)
		}
		_ = c.Error(err)
		return
	}
	if h.recorder != nil {
		h.recorder.RecordSnapshotSaved(len(req.CanvasData))
	}

	c.JSON(http.StatusOK, gin.H{"message": "state saved"})
}

// GetState returns the saved canvas, or an empty string when nothing was
// saved yet so the client starts from a blank canvas.
func (h *WhiteboardHandler) GetState(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	snapshot, err := h.whiteboardService.LoadSnapshot(c.Request.Context(), user.ID, domain.WhiteboardID(c.Param("id")))
	if err != nil {
		if stderrors.Is(err, domain.ErrSnapshotNotFound) {
			c.JSON(http.StatusOK, gin.H{"canvasData": ""})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"canvasData": string(snapshot.Data),
		"updatedBy":  snapshot.UpdatedBy,
		"updatedAt":  snapshot.UpdatedAt,
	})
}

// Members lists the users currently joined to the whiteboard's room.
func (h *WhiteboardHandler) Members(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	id := domain.WhiteboardID(c.Param("id"))
	if _, err := h.whiteboardService.Get(c.Request.Context(), user.ID, id); err != nil {
		_ = c.Error(err)
		return
	}

	members := []domain.UserID{}
	if h.presence != nil {
		members = append(members, h.presence.RoomMembers(id)...)
	}
	c.JSON(http.StatusOK, gin.H{"roomId": id, "members": members})
}

func (h *WhiteboardHandler) user(c *gin.Context) (*domain.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(errors.NewUnauthenticatedError("authentication required"))
		c.Abort()
	}
	return user, ok
}
