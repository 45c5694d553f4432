// Package widgetview turns the raw submessages of one chat message into a
// decoded, JSON-serialisable view for clients. It reports every item in
// arrival order, decoded or with its own error; it does not merge the
// events into a live poll state.
package widgetview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corvino/widgetchat/internal/submessage"
)

// Error kinds reported in views.
const (
	ErrorKindContent  = "malformed_content"
	ErrorKindField    = "malformed_field"
	ErrorKindKeyShape = "malformed_key"
)

// View is the decoded form of a message's submessage list.
type View struct {
	Kind       string          `json:"kind"`
	SenderID   int64           `json:"sender_id"`
	Poll       *PollView       `json:"poll,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	OptionKeys []string        `json:"option_keys,omitempty"`
	Events     []EventView     `json:"events"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
}

// PollView is the initial state of a poll.
type PollView struct {
	Question string       `json:"question"`
	Options  []OptionView `json:"options"`
}

// OptionView is one initial poll option and its key.
type OptionView struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// EventView is one item after the first.
type EventView struct {
	Index     int             `json:"index"`
	SenderID  int64           `json:"sender_id"`
	Type      string          `json:"type,omitempty"`
	Option    string          `json:"option,omitempty"`
	OptionKey string          `json:"option_key,omitempty"`
	Question  string          `json:"question,omitempty"`
	Key       string          `json:"key,omitempty"`
	Vote      string          `json:"vote,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// Decode builds the view of items. It fails only for an empty list; a
// first item that cannot be decoded is reported in View.Error and leaves
// the remaining items uninterpreted.
func Decode(items []json.RawMessage) (*View, error) {
	if len(items) == 0 {
		return nil, submessage.ErrEmptyList
	}

	envelopes := make([]submessage.Envelope, len(items))
	envErrs := make([]error, len(items))
	for i, item := range items {
		envelopes[i], envErrs[i] = submessage.DecodeEnvelope(item)
	}

	view := &View{Kind: submessage.WidgetUnrecognized.String(), Events: []EventView{}}
	if envErrs[0] != nil {
		view.setError(envErrs[0])
		return view, nil
	}
	view.SenderID = envelopes[0].SenderID

	def, err := envelopes[0].Definition()
	if err != nil {
		view.setError(err)
		return view, nil
	}
	view.Kind = def.Kind().String()
	switch d := def.(type) {
	case submessage.PollDefinition:
		view.Poll = &PollView{Question: d.Question, Options: make([]OptionView, len(d.Options))}
		for i, option := range d.Options {
			view.Poll.Options[i] = OptionView{Key: submessage.CannedKey(i), Text: option}
		}
	case submessage.UnrecognizedWidget:
		view.Raw = d.Raw
	}

	var decoded []submessage.ListEvent
	for _, result := range submessage.DecodeEvents(def.Kind(), envelopes) {
		err := result.Err
		if envErr := envErrs[result.Index]; envErr != nil {
			err = envErr
		}
		ev := EventView{Index: result.Index, SenderID: envelopes[result.Index].SenderID}
		if err != nil {
			ev.Error = err.Error()
			ev.ErrorKind = Classify(err)
		} else {
			ev.fill(result.ListEvent)
			decoded = append(decoded, result.ListEvent)
		}
		view.Events = append(view.Events, ev)
	}

	if poll, ok := def.(submessage.PollDefinition); ok {
		view.OptionKeys = submessage.OptionKeys(poll, decoded)
	}
	return view, nil
}

func (v *View) setError(err error) {
	v.Error = err.Error()
	v.ErrorKind = Classify(err)
}

func (ev *EventView) fill(item submessage.ListEvent) {
	switch e := item.Event.(type) {
	case submessage.NewOption:
		ev.Type = submessage.EventTypeNewOption
		ev.Option = e.Option
		ev.OptionKey = e.Key(item.SenderID)
	case submessage.QuestionChanged:
		ev.Type = submessage.EventTypeQuestion
		ev.Question = e.Question
	case submessage.VoteChanged:
		ev.Type = submessage.EventTypeVote
		ev.Key = e.Key
		ev.Vote = e.Op.String()
	case submessage.UnrecognizedEvent:
		ev.Type = "unrecognized"
		ev.Raw = e.Raw
	}
}

// Classify names the kind of a decode error, or returns "" for errors that
// did not come from the submessage decoders.
func Classify(err error) string {
	switch {
	case errors.Is(err, submessage.ErrMalformedKeyShape):
		return ErrorKindKeyShape
	case errors.Is(err, submessage.ErrMalformedField):
		return ErrorKindField
	case errors.Is(err, submessage.ErrMalformedContent):
		return ErrorKindContent
	default:
		return ""
	}
}

// Summary is a one-line description of the view.
func (v *View) Summary() string {
	if v.Error != "" {
		return "widget (" + v.ErrorKind + ")"
	}
	if v.Poll == nil {
		return v.Kind + " widget"
	}
	texts := make([]string, len(v.Poll.Options))
	for i, o := range v.Poll.Options {
		texts[i] = o.Text
	}
	return fmt.Sprintf("poll %q [%s] (%d events)", v.Poll.Question, strings.Join(texts, " | "), len(v.Events))
}

// Describe renders one event as a short line of text.
func (ev EventView) Describe() string {
	prefix := fmt.Sprintf("#%d sender %d", ev.Index, ev.SenderID)
	if ev.Error != "" {
		return prefix + ": error: " + ev.Error
	}
	switch ev.Type {
	case submessage.EventTypeNewOption:
		return fmt.Sprintf("%s added option %q (%s)", prefix, ev.Option, ev.OptionKey)
	case submessage.EventTypeQuestion:
		return fmt.Sprintf("%s changed the question to %q", prefix, ev.Question)
	case submessage.EventTypeVote:
		return fmt.Sprintf("%s vote %s %s", prefix, ev.Vote, ev.Key)
	default:
		return fmt.Sprintf("%s unrecognized: %s", prefix, string(ev.Raw))
	}
}
