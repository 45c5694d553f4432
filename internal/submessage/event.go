package submessage

import (
	"encoding/json"
	"fmt"
)

// Poll event type literals.
const (
	EventTypeNewOption = "new_option"
	EventTypeQuestion  = "question"
	EventTypeVote      = "vote"
)

// PollEvent is the closed set of incremental poll mutations: NewOption,
// QuestionChanged, VoteChanged or UnrecognizedEvent.
type PollEvent interface {
	isPollEvent()
}

// NewOption adds an option. Idx is a sequence number scoped to the sender
// that submitted the event, not a global index.
type NewOption struct {
	Option string
	Idx    int
}

// Key returns the option key of the added option given the id of the
// sender that submitted the event.
func (e NewOption) Key(senderID int64) string {
	return SenderKey(senderID, e.Idx)
}

// QuestionChanged replaces the poll question.
type QuestionChanged struct {
	Question string
}

// VoteChanged adds or removes the submitting sender's vote for the option
// named by Key.
type VoteChanged struct {
	Key string
	Op  VoteOp
}

// UnrecognizedEvent keeps an event verbatim when its type is unknown or
// absent, or when the owning widget is not one this package understands.
type UnrecognizedEvent struct {
	Raw json.RawMessage
}

func (NewOption) isPollEvent()         {}
func (QuestionChanged) isPollEvent()   {}
func (VoteChanged) isPollEvent()       {}
func (UnrecognizedEvent) isPollEvent() {}

type newOptionWire struct {
	Type   string `json:"type"`
	Option string `json:"option"`
	Idx    int    `json:"idx"`
}

type questionWire struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

type voteWire struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	Vote *int   `json:"vote"`
}

// DecodeEvent decodes the content of a submessage after the first one in a
// list whose widget kind is kind. Unlike DecodeDefinition, fields of a
// recognized event have no defaults: they feed option-key computation and
// must be present. A vote key is additionally checked against the
// option-key grammar after the structural decode succeeds.
func DecodeEvent(content []byte, kind WidgetKind) (PollEvent, error) {
	f, err := parseObject(content)
	if err != nil {
		return nil, err
	}
	if kind != WidgetPoll {
		return UnrecognizedEvent{Raw: cloneRaw(content)}, nil
	}

	eventType, present, valid := f.tag("type")
	if present && !valid {
		return nil, wrongType("event", "type")
	}

	switch eventType {
	case EventTypeNewOption:
		option, err := f.requireString(EventTypeNewOption, "option")
		if err != nil {
			return nil, err
		}
		idx, err := f.requireInt(EventTypeNewOption, "idx")
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			return nil, wrongType(EventTypeNewOption, "idx")
		}
		return NewOption{Option: option, Idx: int(idx)}, nil

	case EventTypeQuestion:
		question, err := f.requireString(EventTypeQuestion, "question")
		if err != nil {
			return nil, err
		}
		return QuestionChanged{Question: question}, nil

	case EventTypeVote:
		key, err := f.requireString(EventTypeVote, "key")
		if err != nil {
			return nil, err
		}
		vote, err := f.requireNumber(EventTypeVote, "vote")
		if err != nil {
			return nil, err
		}
		event := VoteChanged{Key: key, Op: voteOpFromNumber(vote)}
		if err := ValidateVote(event); err != nil {
			return nil, err
		}
		return event, nil

	default:
		return UnrecognizedEvent{Raw: cloneRaw(content)}, nil
	}
}

// ValidateVote checks the key of a structurally valid vote event.
func ValidateVote(event VoteChanged) error {
	_, err := ParseOptionKey(event.Key)
	return err
}

// EncodeEvent is the inverse of DecodeEvent. VoteUnrecognized encodes as a
// null vote, so such an event does not survive a round trip.
func EncodeEvent(event PollEvent) ([]byte, error) {
	switch e := event.(type) {
	case NewOption:
		return json.Marshal(newOptionWire{Type: EventTypeNewOption, Option: e.Option, Idx: e.Idx})
	case QuestionChanged:
		return json.Marshal(questionWire{Type: EventTypeQuestion, Question: e.Question})
	case VoteChanged:
		return json.Marshal(voteWire{Type: EventTypeVote, Key: e.Key, Vote: e.Op.wireValue()})
	case UnrecognizedEvent:
		if len(e.Raw) == 0 {
			return nil, fmt.Errorf("submessage: unrecognized event has no content")
		}
		return cloneRaw(e.Raw), nil
	default:
		return nil, fmt.Errorf("submessage: unsupported poll event %T", event)
	}
}
