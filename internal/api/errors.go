package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"strings"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Reason)
}

func newStatusError(resp *stdhttp.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	reason := ""
	var body errorResponse
	if json.Unmarshal(data, &body) == nil {
		reason = body.Error
	}
	if reason == "" {
		reason = strings.TrimSpace(string(data))
	}
	if reason == "" {
		reason = stdhttp.StatusText(resp.StatusCode)
	}
	return &StatusError{Status: resp.StatusCode, Reason: reason}
}

func asStatus(err error, target **StatusError) bool {
	return err != nil && errors.As(err, target)
}
