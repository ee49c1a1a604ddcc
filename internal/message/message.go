// Package message defines the clipsave IPC protocol.
//
// Every exchange is one request line from the CLI followed by one response
// line from the daemon, each a JSON object terminated by a newline.
// Responses echo the request ID.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipsave/internal/saveerr"
)

// Type identifies the kind of message.
type Type string

const (
	// Requests.
	TypeSave        Type = "SAVE"
	TypeStatus      Type = "STATUS"
	TypeReset       Type = "RESET"
	TypeClearRecent Type = "CLEAR_RECENT"

	// Responses.
	TypeResult         Type = "RESULT"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeError          Type = "ERROR"
)

// Message is the single envelope for all IPC traffic. Only the fields
// relevant to Type are set.
type Message struct {
	Type Type   `json:"type"`
	ID   string `json:"id,omitempty"`

	// TypeSave: explicit output format; empty uses the stored default.
	Format string `json:"format,omitempty"`

	// TypeResult: final path of a save. Empty for the other requests.
	Path string `json:"path,omitempty"`

	// TypeStatusResponse
	Status *Status `json:"status,omitempty"`

	// TypeError
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Status describes the daemon for `clipsave status`.
type Status struct {
	Version     string    `json:"version" yaml:"version"`
	Backend     string    `json:"backend" yaml:"backend"`
	Monitoring  bool      `json:"monitoring" yaml:"monitoring"`
	Kind        string    `json:"kind" yaml:"kind"`
	Placeholder bool      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Seq         uint64    `json:"seq" yaml:"seq"`
	ChangeCount int64     `json:"change_count" yaml:"change_count"`
	LastChange  time.Time `json:"last_change" yaml:"last_change"`
	Subscribers []string  `json:"subscribers,omitempty" yaml:"subscribers,omitempty"`
	Recent      []Recent  `json:"recent,omitempty" yaml:"recent,omitempty"`
}

// Recent is one entry of the recently saved files list.
type Recent struct {
	Path    string    `json:"path" yaml:"path"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
}

// NewRequest returns a request of type t with a fresh ID.
func NewRequest(t Type) *Message {
	return &Message{Type: t, ID: uuid.NewString()}
}

// Reply returns a response of type t correlated with m.
func (m *Message) Reply(t Type) *Message {
	return &Message{Type: t, ID: m.ID}
}

// ReplyErr returns an ERROR response carrying err and its sentinel code.
func (m *Message) ReplyErr(err error) *Message {
	r := m.Reply(TypeError)
	r.Error = err.Error()
	r.Code = saveerr.Code(err)
	return r
}

// Err returns the error an ERROR message carries, nil otherwise.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return saveerr.FromCode(m.Code, m.Error)
}

// Encode serialises m to JSON (without the trailing newline).
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a JSON line into a Message.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("decode message: missing type")
	}
	return &m, nil
}
