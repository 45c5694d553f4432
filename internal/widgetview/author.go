package widgetview

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/corvino/widgetchat/internal/submessage"
)

// ErrUnknownOption is returned when a vote names a well-formed option key
// that the poll does not have.
var ErrUnknownOption = errors.New("unknown option key")

// PollContent returns the definition content of a new poll.
func PollContent(question string, options []string) (string, error) {
	content, err := submessage.EncodeDefinition(submessage.NewPollDefinition(question, options))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// NextOptionIdx returns the idx the given sender should use for their next
// new option: one past the highest idx they have used in this poll.
func (v *View) NextOptionIdx(senderID int64) int {
	next := 0
	for _, ev := range v.Events {
		if ev.Type != submessage.EventTypeNewOption || ev.SenderID != senderID {
			continue
		}
		parts, err := submessage.ParseOptionKey(ev.OptionKey)
		if err != nil {
			continue
		}
		next = max(next, parts.Idx+1)
	}
	return next
}

// OptionContent returns the content of a new_option event for sender and
// the option key it will create.
func (v *View) OptionContent(senderID int64, text string) (content, key string, err error) {
	if v.Poll == nil {
		return "", "", fmt.Errorf("message is not a poll")
	}
	event := submessage.NewOption{Option: text, Idx: v.NextOptionIdx(senderID)}
	data, err := submessage.EncodeEvent(event)
	if err != nil {
		return "", "", err
	}
	return string(data), event.Key(senderID), nil
}

// QuestionContent returns the content of a question event.
func (v *View) QuestionContent(question string) (string, error) {
	if v.Poll == nil {
		return "", fmt.Errorf("message is not a poll")
	}
	data, err := submessage.EncodeEvent(submessage.QuestionChanged{Question: question})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// VoteContent returns the content of a vote event for key. The key must be
// well formed and name an option of the poll.
func (v *View) VoteContent(key string, remove bool) (string, error) {
	if v.Poll == nil {
		return "", fmt.Errorf("message is not a poll")
	}
	event := submessage.VoteChanged{Key: key, Op: submessage.VoteAdd}
	if remove {
		event.Op = submessage.VoteRemove
	}
	if err := submessage.ValidateVote(event); err != nil {
		return "", err
	}
	if !slices.Contains(v.OptionKeys, key) {
		return "", fmt.Errorf("%w %q (have %s)", ErrUnknownOption, key, strings.Join(v.OptionKeys, ", "))
	}
	data, err := submessage.EncodeEvent(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AddedOptionKey returns the option key created by a stored new_option
// submessage, using the sender id the server recorded for it.
func AddedOptionKey(item json.RawMessage) (string, bool) {
	env, err := submessage.DecodeEnvelope(item)
	if err != nil {
		return "", false
	}
	decoded, err := env.Event(submessage.WidgetPoll)
	if err != nil {
		return "", false
	}
	opt, ok := decoded.(submessage.NewOption)
	if !ok {
		return "", false
	}
	return opt.Key(env.SenderID), true
}
