package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type is the value of a frame's "type" field.
type Type string

const (
	TypeJoinDocument     Type = "join-document"
	TypeJoinedDocument   Type = "joined-document"
	TypeTextUpdate       Type = "text-update"
	TypeCursorUpdate     Type = "cursor-update"
	TypeRequestAnalytics Type = "request-analytics"
	TypeAnalyticsData    Type = "analytics-data"
	TypeError            Type = "error"
)

// TimestampLayout is used for server-assigned timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrMalformedFrame is returned by Decode for frames that cannot be parsed.
var ErrMalformedFrame = errors.New("malformed frame")

// Message is an inbound frame. The set of implementations is closed.
type Message interface {
	Type() Type
	sealed()
}

// JoinDocument asks the server to add the connection to a document room.
type JoinDocument struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId,omitempty"`
}

// TextUpdate carries a paragraph edit. Version is opaque and relayed as-is.
type TextUpdate struct {
	DocumentID  string          `json:"documentId"`
	ParagraphID string          `json:"paragraphId"`
	UserID      string          `json:"userId"`
	Content     string          `json:"content"`
	Version     json.RawMessage `json:"version,omitempty"`
}

// CursorUpdate is relayed verbatim to the sender's room. Its payload is not
// interpreted.
type CursorUpdate struct {
	Raw []byte
}

// RequestAnalytics asks for the visualization snapshot of a document.
type RequestAnalytics struct {
	DocumentID string `json:"documentId"`
}

// Unknown is any frame whose type is not recognized.
type Unknown struct {
	Name string
}

func (JoinDocument) Type() Type     { return TypeJoinDocument }
func (TextUpdate) Type() Type       { return TypeTextUpdate }
func (CursorUpdate) Type() Type     { return TypeCursorUpdate }
func (RequestAnalytics) Type() Type { return TypeRequestAnalytics }
func (u Unknown) Type() Type        { return Type(u.Name) }

func (JoinDocument) sealed()     {}
func (TextUpdate) sealed()       {}
func (CursorUpdate) sealed()     {}
func (RequestAnalytics) sealed() {}
func (Unknown) sealed()          {}

// JoinedDocument confirms a join to the requesting connection.
type JoinedDocument struct {
	Type       Type   `json:"type"`
	DocumentID string `json:"documentId"`
	Message    string `json:"message"`
}

// TextUpdateRelay is the text-update frame delivered to the other room members.
type TextUpdateRelay struct {
	Type        Type            `json:"type"`
	DocumentID  string          `json:"documentId"`
	ParagraphID string          `json:"paragraphId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	Content     string          `json:"content"`
	Version     json.RawMessage `json:"version,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// AnalyticsData answers a request-analytics frame.
type AnalyticsData struct {
	Type       Type   `json:"type"`
	DocumentID string `json:"documentId"`
	Data       any    `json:"data"`
}

// Error reports a frame that could not be processed.
type Error struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func NewJoinedDocument(documentID string) JoinedDocument {
	return JoinedDocument{
		Type:       TypeJoinedDocument,
		DocumentID: documentID,
		Message:    "Successfully joined document",
	}
}

// NewTextUpdateRelay stamps an inbound edit with the server time.
func NewTextUpdateRelay(u TextUpdate, at time.Time) TextUpdateRelay {
	return TextUpdateRelay{
		Type:        TypeTextUpdate,
		DocumentID:  u.DocumentID,
		ParagraphID: u.ParagraphID,
		UserID:      u.UserID,
		Content:     u.Content,
		Version:     u.Version,
		Timestamp:   at.UTC().Format(TimestampLayout),
	}
}

func NewAnalyticsData(documentID string, data any) AnalyticsData {
	return AnalyticsData{Type: TypeAnalyticsData, DocumentID: documentID, Data: data}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

type envelope struct {
	Type Type `json:"type"`
}

// Decode parses one inbound frame. Anything but a JSON object is malformed.
func Decode(frame []byte) (Message, error) {
	if trimmed := bytes.TrimLeft(frame, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: frame is not a JSON object", ErrMalformedFrame)
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeJoinDocument:
		var m JoinDocument
		return decodeInto(frame, &m)
	case TypeTextUpdate:
		var m TextUpdate
		return decodeInto(frame, &m)
	case TypeCursorUpdate:
		return CursorUpdate{Raw: append([]byte(nil), frame...)}, nil
	case TypeRequestAnalytics:
		var m RequestAnalytics
		return decodeInto(frame, &m)
	default:
		return Unknown{Name: string(env.Type)}, nil
	}
}

func decodeInto[T Message](frame []byte, m *T) (Message, error) {
	if err := json.Unmarshal(frame, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return *m, nil
}

// Encode marshals an outbound frame.
func Encode(frame any) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}
