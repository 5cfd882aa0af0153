package types

import (
	"errors"
	"time"
)

// ErrNotFound is returned by history lookups that have no fresh match.
var ErrNotFound = errors.New("analysis not found")

// Analysis is one successful inference as kept in history.
type Analysis struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	ImageHash string     `json:"imageHash"`
	MIMEType  string     `json:"mimeType"`
	Engine    string     `json:"engine"`
	Model     string     `json:"model"`
	Result    MoveResult `json:"result"`
}
