// Package api calls the chat server's REST endpoints for room metadata,
// membership and moderation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

const defaultTimeout = 10 * time.Second

// Client is a REST client authenticated with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *stdhttp.Client
	log     *zerolog.Logger
}

// New creates a client for baseURL. A nil httpClient selects one with a 10s timeout.
func New(baseURL, token string, httpClient *stdhttp.Client, logger *zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &stdhttp.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		log:     logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type accessResponse struct {
	Banned           bool `json:"banned"`
	RemainingMinutes int  `json:"remaining_minutes"`
}

type roomInfoResponse struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"` // unix seconds
	Capacity  int    `json:"capacity"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

// CheckAccess reports whether the local user is temporarily banned from a room.
func (c *Client) CheckAccess(ctx context.Context, roomID string) (core.Access, error) {
	var resp accessResponse
	if err := c.do(ctx, stdhttp.MethodGet, roomPath(roomID, "check-access"), nil, &resp); err != nil {
		return core.Access{}, err
	}
	return core.Access{Banned: resp.Banned, RemainingMinutes: resp.RemainingMinutes}, nil
}

// RoomInfo returns room metadata.
func (c *Client) RoomInfo(ctx context.Context, roomID string) (core.RoomInfo, error) {
	var resp roomInfoResponse
	if err := c.do(ctx, stdhttp.MethodGet, roomPath(roomID, "info"), nil, &resp); err != nil {
		return core.RoomInfo{}, err
	}
	info := core.RoomInfo{Name: resp.Name, CreatedBy: resp.CreatedBy, Capacity: resp.Capacity}
	if resp.CreatedAt > 0 {
		info.CreatedAt = time.Unix(resp.CreatedAt, 0)
	}
	return info, nil
}

// Members lists the members of a room.
func (c *Client) Members(ctx context.Context, roomID string) ([]core.Member, error) {
	var members []core.Member
	if err := c.do(ctx, stdhttp.MethodGet, roomPath(roomID, "members"), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Kick removes a user from a room.
func (c *Client) Kick(ctx context.Context, roomID, userID string) error {
	return c.moderate(ctx, roomPath(roomID, "kick"), userRequest{UserID: userID})
}

// Ban bans a user service-wide.
func (c *Client) Ban(ctx context.Context, userID string) error {
	return c.moderate(ctx, "/admin/ban", userRequest{UserID: userID})
}

// Report files a moderation report.
func (c *Client) Report(ctx context.Context, report core.Report) error {
	return c.moderate(ctx, "/admin/report", report)
}

// CloseRoom closes a room for everyone.
func (c *Client) CloseRoom(ctx context.Context, roomID string) error {
	return c.moderate(ctx, roomPath(roomID, "close"), nil)
}

// moderate posts body to path. A non-2xx answer becomes a moderation_rejected
// error carrying the server's reason.
func (c *Client) moderate(ctx context.Context, path string, body any) error {
	err := c.do(ctx, stdhttp.MethodPost, path, body, nil)
	var status *StatusError
	if asStatus(err, &status) {
		return core.NewError(core.ErrCodeModerationRejected, status.Reason)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func roomPath(roomID, action string) string {
	return "/rooms/" + url.PathEscape(roomID) + "/" + action
}
