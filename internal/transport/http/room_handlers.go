package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/coordinator"
	"github.com/vovakirdan/wirechat-client/internal/core"
)

// RoomHandlers provides HTTP handlers for the open room tabs.
type RoomHandlers struct {
	engine Engine
	log    *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(engine Engine, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		engine: engine,
		log:    logger,
	}
}

// OpenRoomRequest represents the open room request body.
type OpenRoomRequest struct {
	ID   string `json:"id" binding:"required,max=64"`
	Name string `json:"name" binding:"max=64"`
}

// OpenRoomResponse is returned after a room tab is opened.
type OpenRoomResponse struct {
	Index int `json:"index"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=4096"`
}

// ListRooms returns the room list view.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	var snap coordinator.Snapshot
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		snap = co.Snapshot()
		return nil
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// OpenRoom opens (or foregrounds) a room tab.
// POST /api/rooms
func (h *RoomHandlers) OpenRoom(c *gin.Context) {
	var req OpenRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid open room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	var idx int
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		var err error
		idx, err = co.OpenRoom(req.ID, req.Name)
		return err
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, OpenRoomResponse{Index: idx})
}

// SwitchForeground makes the room at :index visible.
// POST /api/rooms/:index/foreground
func (h *RoomHandlers) SwitchForeground(c *gin.Context) {
	h.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.SwitchForeground(idx)
	})
}

// ActivateRoom retries joining the room at :index.
// POST /api/rooms/:index/activate
func (h *RoomHandlers) ActivateRoom(c *gin.Context) {
	h.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.ActivateRoom(idx)
	})
}

// CloseRoom leaves the room at :index and forgets it.
// DELETE /api/rooms/:index
func (h *RoomHandlers) CloseRoom(c *gin.Context) {
	ctx := c.Request.Context()
	h.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.CloseRoom(ctx, idx)
	})
}

// GetRoom returns the timeline, votes and members of the room at :index.
// GET /api/rooms/:index/messages
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}

	var detail coordinator.RoomDetail
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		var err error
		detail, err = co.Room(idx)
		return err
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SendMessage posts a chat message to the room at :index.
// POST /api/rooms/:index/messages
func (h *RoomHandlers) SendMessage(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	var msg core.Message
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		var err error
		msg, err = co.Send(idx, req.Text)
		return err
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// TypingRequest toggles the local typing indicator.
type TypingRequest struct {
	Typing bool `json:"typing"`
}

// SetTyping tells the room at :index whether the local user is typing.
// POST /api/rooms/:index/typing
func (h *RoomHandlers) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}
	h.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.SetTyping(idx, req.Typing)
	})
}

// onRoom runs fn for the room in the :index parameter and answers 204 on success.
func (h *RoomHandlers) onRoom(c *gin.Context, fn func(co *coordinator.Coordinator, idx int) error) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		return fn(co, idx)
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
