package submessage

import (
	"encoding/json"
)

// MsgType is the outer discriminator of a submessage.
type MsgType int

const (
	// MsgTypeUnrecognized covers every msg_type literal this package does
	// not know, including a missing one.
	MsgTypeUnrecognized MsgType = iota
	// MsgTypeWidget marks items that belong to a widget's item list.
	MsgTypeWidget
)

// Wire literals for MsgType. An unrecognized envelope always encodes as
// MsgTypeUnrecognizedLiteral; the original literal is not retained.
const (
	MsgTypeWidgetLiteral       = "widget"
	MsgTypeUnrecognizedLiteral = "unrecognized"
)

// ParseMsgType maps a wire literal to a MsgType. Matching is exact and
// case-sensitive.
func ParseMsgType(s string) MsgType {
	if s == MsgTypeWidgetLiteral {
		return MsgTypeWidget
	}
	return MsgTypeUnrecognized
}

func (t MsgType) String() string {
	if t == MsgTypeWidget {
		return MsgTypeWidgetLiteral
	}
	return MsgTypeUnrecognizedLiteral
}

// Envelope is one submessage as it travels on the wire: who authored it,
// its type tag, and an opaque JSON document encoded as text. Content is not
// parsed here; the caller picks the decoder from the item's position.
type Envelope struct {
	SenderID int64
	MsgType  MsgType
	Content  string
}

type wireRecord struct {
	SenderID int64  `json:"sender_id"`
	MsgType  string `json:"msg_type"`
	Content  string `json:"content"`
}

// DecodeEnvelope decodes one wire record. sender_id and content are
// required; msg_type never fails and falls back to MsgTypeUnrecognized.
func DecodeEnvelope(data []byte) (Envelope, error) {
	f, err := parseObject(data)
	if err != nil {
		return Envelope{}, err
	}
	senderID, err := f.requireInt("envelope", "sender_id")
	if err != nil {
		return Envelope{}, err
	}
	content, err := f.requireString("envelope", "content")
	if err != nil {
		return Envelope{}, err
	}
	tag, _, _ := f.tag("msg_type")
	return Envelope{
		SenderID: senderID,
		MsgType:  ParseMsgType(tag),
		Content:  content,
	}, nil
}

// EncodeEnvelope is the inverse of DecodeEnvelope.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	return json.Marshal(wireRecord{
		SenderID: e.SenderID,
		MsgType:  e.MsgType.String(),
		Content:  e.Content,
	})
}

// MarshalJSON encodes the envelope as its wire record.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return EncodeEnvelope(e)
}

// UnmarshalJSON decodes a wire record with DecodeEnvelope semantics. A JSON
// null leaves e unchanged.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	decoded, err := DecodeEnvelope(data)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// Definition decodes this envelope's content as a widget definition. Only
// the first item of a list carries one.
func (e Envelope) Definition() (WidgetDefinition, error) {
	return DecodeDefinition([]byte(e.Content))
}

// Event decodes this envelope's content as an event of a widget of the
// given kind. Only items after the first carry events.
func (e Envelope) Event(kind WidgetKind) (PollEvent, error) {
	return DecodeEvent([]byte(e.Content), kind)
}
