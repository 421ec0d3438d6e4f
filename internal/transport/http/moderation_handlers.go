package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/coordinator"
	"github.com/vovakirdan/wirechat-client/internal/core"
)

// ModerationHandlers provides HTTP handlers for kick votes, blocks and moderation requests.
type ModerationHandlers struct {
	engine Engine
	log    *zerolog.Logger
	rooms  *RoomHandlers
}

// NewModerationHandlers creates a new moderation handlers instance.
func NewModerationHandlers(engine Engine, logger *zerolog.Logger) *ModerationHandlers {
	return &ModerationHandlers{
		engine: engine,
		log:    logger,
		rooms:  NewRoomHandlers(engine, logger),
	}
}

// StartVoteRequest represents the start vote request body.
type StartVoteRequest struct {
	Target string `json:"target" binding:"required"`
}

// ToggleVoteRequest optionally names the voter. An empty voter is the local user.
type ToggleVoteRequest struct {
	Voter string `json:"voter"`
}

// UserRequest names the user a moderation request is about.
type UserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReportRequest represents the report request body.
type ReportRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	MessageID string `json:"message_id"`
	Reason    string `json:"reason" binding:"max=512"`
}

// BlocksResponse lists blocked user ids.
type BlocksResponse struct {
	Blocked []string `json:"blocked"`
}

// StartVote opens a kick vote in the room at :index.
// POST /api/rooms/:index/votes
func (h *ModerationHandlers) StartVote(c *gin.Context) {
	var req StartVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "target required", Code: core.ErrCodeBadRequest})
		return
	}
	h.rooms.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.StartKickVote(idx, req.Target)
	})
}

// ToggleVote adds or withdraws a vote against :target.
// POST /api/rooms/:index/votes/:target
func (h *ModerationHandlers) ToggleVote(c *gin.Context) {
	var req ToggleVoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
			return
		}
	}
	target := c.Param("target")
	h.rooms.onRoom(c, func(co *coordinator.Coordinator, idx int) error {
		return co.ToggleVote(idx, req.Voter, target)
	})
}

// Ban asks the server to ban a user. The outcome appears in the room timeline.
// POST /api/rooms/:index/ban
func (h *ModerationHandlers) Ban(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id required", Code: core.ErrCodeBadRequest})
		return
	}
	h.accepted(c, func(co *coordinator.Coordinator, idx int) error {
		return co.BanUser(idx, req.UserID)
	})
}

// Report files a report about a user.
// POST /api/rooms/:index/report
func (h *ModerationHandlers) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}
	h.accepted(c, func(co *coordinator.Coordinator, idx int) error {
		return co.ReportUser(idx, req.UserID, req.MessageID, req.Reason)
	})
}

// CloseRemote asks the server to close the room for everyone.
// POST /api/rooms/:index/close
func (h *ModerationHandlers) CloseRemote(c *gin.Context) {
	h.accepted(c, func(co *coordinator.Coordinator, idx int) error {
		return co.CloseRoomRemote(idx)
	})
}

// ListBlocks returns the blocked user ids.
// GET /api/blocks
func (h *ModerationHandlers) ListBlocks(c *gin.Context) {
	var blocked []string
	err := h.engine.Do(c.Request.Context(), func(co *coordinator.Coordinator) error {
		blocked = co.BlockedUsers()
		return nil
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, BlocksResponse{Blocked: blocked})
}

// Block hides a user's messages in every room.
// POST /api/blocks/:user
func (h *ModerationHandlers) Block(c *gin.Context) {
	ctx := c.Request.Context()
	user := c.Param("user")
	h.noContent(c, func(co *coordinator.Coordinator) error {
		return co.BlockUser(ctx, user)
	})
}

// Unblock lets a user's messages through again.
// DELETE /api/blocks/:user
func (h *ModerationHandlers) Unblock(c *gin.Context) {
	ctx := c.Request.Context()
	user := c.Param("user")
	h.noContent(c, func(co *coordinator.Coordinator) error {
		return co.UnblockUser(ctx, user)
	})
}

// accepted runs an asynchronous moderation request and answers 202.
func (h *ModerationHandlers) accepted(c *gin.Context, fn func(co *coordinator.Coordinator, idx int) error) {
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
	c.Status(http.StatusAccepted)
}

func (h *ModerationHandlers) noContent(c *gin.Context, fn func(co *coordinator.Coordinator) error) {
	if err := h.engine.Do(c.Request.Context(), fn); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
