package amqp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"kakeibo/internal/core"
)

// ArchiveMovedMessage announces a completed archive move.
type ArchiveMovedMessage struct {
	EventID    string    `json:"event_id"`
	Moved      int       `json:"moved"`
	Rejected   int       `json:"rejected"`
	ArchiveRef string    `json:"archive_ref,omitempty"`
	Source     string    `json:"source"` // "webhook" or "scheduler"
	Timestamp  time.Time `json:"timestamp"`
}

func NewArchiveMovedMessage(res core.MoveResult, source string) *ArchiveMovedMessage {
	return &ArchiveMovedMessage{
		EventID:    newEventID(),
		Moved:      res.Moved,
		Rejected:   len(res.Rejected),
		ArchiveRef: res.ArchiveRef,
		Source:     source,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ArchiveMovedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ArchiveMovedMessageFromJSON(data []byte) (*ArchiveMovedMessage, error) {
	var msg ArchiveMovedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" {
		return nil, errors.New("missing event_id")
	}
	return &msg, nil
}

func newEventID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "evt_" + time.Now().UTC().Format("20060102150405.000000000")
	}
	return "evt_" + hex.EncodeToString(b)
}
