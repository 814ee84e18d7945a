package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matchday/internal/core"
)

// MessageVersion is the envelope version written by this build.
const MessageVersion = 1

// ErrMalformedMessage marks bodies that can never be processed.
var ErrMalformedMessage = errors.New("malformed message")

// MatchCompletedMessage announces a finished match. The whole match
// travels in the envelope, so consumers never read the publisher's store.
type MatchCompletedMessage struct {
	Version   int        `json:"version"`
	MessageID string     `json:"message_id"`
	Source    string     `json:"source,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Match     core.Match `json:"match"`
}

func NewMatchCompletedMessage(m core.Match, source string) *MatchCompletedMessage {
	return &MatchCompletedMessage{
		Version:   MessageVersion,
		MessageID: uuid.NewString(),
		Source:    source,
		Timestamp: time.Now().UTC(),
		Match:     m,
	}
}

func (m *MatchCompletedMessage) Encode() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode match %d: %w", m.Match.ID, err)
	}
	return body, nil
}

// DecodeMatchCompleted parses a body. Envelopes without a version predate
// versioning and are read as version 1; newer versions are rejected.
func DecodeMatchCompleted(body []byte) (*MatchCompletedMessage, error) {
	var msg MatchCompletedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch {
	case msg.Version == 0:
		msg.Version = MessageVersion
	case msg.Version > MessageVersion:
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedMessage, msg.Version)
	}
	if msg.Match.ID <= 0 {
		return nil, fmt.Errorf("%w: missing match id", ErrMalformedMessage)
	}
	return &msg, nil
}
