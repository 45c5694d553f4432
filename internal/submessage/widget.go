package submessage

import (
	"encoding/json"
	"fmt"
)

// WidgetKind identifies the widget a submessage list implements. It is
// learned from the first item and decides how every later item decodes.
type WidgetKind int

const (
	WidgetUnrecognized WidgetKind = iota
	WidgetPoll
)

// WidgetTypePoll is the widget_type literal for polls.
const WidgetTypePoll = "poll"

func (k WidgetKind) String() string {
	if k == WidgetPoll {
		return WidgetTypePoll
	}
	return "unrecognized"
}

// WidgetDefinition is the closed set of initial widget payloads:
// PollDefinition or UnrecognizedWidget.
type WidgetDefinition interface {
	Kind() WidgetKind
	isWidgetDefinition()
}

// PollDefinition seeds a poll. The server does not guarantee either field,
// so both default to empty values when absent. Decoded definitions always
// carry a non-nil Options slice; build values with NewPollDefinition to
// compare them against decoded ones.
type PollDefinition struct {
	Question string
	Options  []string
}

// NewPollDefinition returns a poll definition whose Options is never nil.
func NewPollDefinition(question string, options []string) PollDefinition {
	return PollDefinition{Question: question, Options: append([]string{}, options...)}
}

// UnrecognizedWidget keeps a definition whose widget_type is unknown or
// absent, verbatim, so it can be re-encoded untouched.
type UnrecognizedWidget struct {
	Raw json.RawMessage
}

func (PollDefinition) Kind() WidgetKind     { return WidgetPoll }
func (UnrecognizedWidget) Kind() WidgetKind { return WidgetUnrecognized }

func (PollDefinition) isWidgetDefinition()     {}
func (UnrecognizedWidget) isWidgetDefinition() {}

// CannedKeys returns the option key of every initial option, in order.
func (p PollDefinition) CannedKeys() []string {
	keys := make([]string, len(p.Options))
	for i := range p.Options {
		keys[i] = CannedKey(i)
	}
	return keys
}

type widgetWire struct {
	WidgetType string        `json:"widget_type"`
	ExtraData  pollExtraData `json:"extra_data"`
}

type pollExtraData struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// DecodeDefinition decodes the content of the first submessage in a list.
// An unknown or absent widget_type is not an error: the whole document is
// kept as an UnrecognizedWidget. For polls, absent question/options take
// their defaults while a present value of the wrong type is an error.
func DecodeDefinition(content []byte) (WidgetDefinition, error) {
	f, err := parseObject(content)
	if err != nil {
		return nil, err
	}
	tag, _, _ := f.tag("widget_type")
	if tag != WidgetTypePoll {
		return UnrecognizedWidget{Raw: cloneRaw(content)}, nil
	}

	def := NewPollDefinition("", nil)
	raw, ok := f.lookup("extra_data")
	if !ok {
		return def, nil
	}
	extra, err := parseObject(raw)
	if err != nil {
		return nil, wrongType(WidgetTypePoll, "extra_data")
	}
	if raw, ok := extra.lookup("question"); ok {
		if err := json.Unmarshal(raw, &def.Question); err != nil {
			return nil, wrongType(WidgetTypePoll, "question")
		}
	}
	if raw, ok := extra.lookup("options"); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, wrongType(WidgetTypePoll, "options")
		}
		for _, item := range items {
			var option string
			if isNull(item) || json.Unmarshal(item, &option) != nil {
				return nil, wrongType(WidgetTypePoll, "options")
			}
			def.Options = append(def.Options, option)
		}
	}
	return def, nil
}

// EncodeDefinition is the inverse of DecodeDefinition. An UnrecognizedWidget
// encodes as the document it was decoded from.
func EncodeDefinition(def WidgetDefinition) ([]byte, error) {
	switch d := def.(type) {
	case PollDefinition:
		options := d.Options
		if options == nil {
			options = []string{}
		}
		return json.Marshal(widgetWire{
			WidgetType: WidgetTypePoll,
			ExtraData:  pollExtraData{Question: d.Question, Options: options},
		})
	case UnrecognizedWidget:
		if len(d.Raw) == 0 {
			return nil, fmt.Errorf("submessage: unrecognized widget has no content")
		}
		return cloneRaw(d.Raw), nil
	default:
		return nil, fmt.Errorf("submessage: unsupported widget definition %T", def)
	}
}
