package history

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type cursor struct {
	Seq int64 `json:"seq"`
}

// EncodePageToken marks the last sequence number already delivered; the next
// page resumes strictly after it.
func EncodePageToken(seq int64) string {
	data, _ := json.Marshal(cursor{Seq: seq})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodePageToken returns 0 for an empty token (start of the log).
func DecodePageToken(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("%w: decode json: %v", ErrInvalidCursor, err)
	}
	if c.Seq < 0 {
		return 0, ErrInvalidCursor
	}
	return c.Seq, nil
}
