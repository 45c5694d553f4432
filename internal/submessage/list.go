package submessage

import (
	"errors"
	"fmt"
	"iter"
	"runtime"
	"sync"
)

// ErrEmptyList is returned by DecodeList for a message without submessages.
var ErrEmptyList = errors.New("submessage: empty submessage list")

// ListEvent is one decoded item at position >= 1 of a submessage list.
type ListEvent struct {
	Index    int
	SenderID int64
	Event    PollEvent
}

// EventResult pairs a decoded item with its decode error; exactly one of
// Event and Err is set.
type EventResult struct {
	ListEvent
	Err error
}

// DecodeList decodes the definition carried by items[0] and returns the
// remaining items as a lazy sequence of events in arrival order. Each item
// is decoded when the sequence reaches it and its error is yielded in its
// place; the sequence keeps going, so the caller chooses between stopping
// at the first error and skipping bad items.
//
// Items are never reordered.
func DecodeList(items []Envelope) (WidgetDefinition, iter.Seq2[ListEvent, error], error) {
	if len(items) == 0 {
		return nil, nil, ErrEmptyList
	}
	def, err := items[0].Definition()
	if err != nil {
		return nil, nil, fmt.Errorf("submessage 0: %w", err)
	}
	kind := def.Kind()
	events := func(yield func(ListEvent, error) bool) {
		for i := 1; i < len(items); i++ {
			event, err := decodeItem(kind, i, items[i])
			if !yield(event, err) {
				return
			}
		}
	}
	return def, events, nil
}

// DecodeEvents decodes items[1:] concurrently. No event decode depends on
// another, so the only shared input is the widget kind learned from
// items[0]. Results are returned in arrival order.
func DecodeEvents(kind WidgetKind, items []Envelope) []EventResult {
	if len(items) <= 1 {
		return nil
	}
	results := make([]EventResult, len(items)-1)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(results) {
		workers = len(results)
	}
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				event, err := decodeItem(kind, i, items[i])
				results[i-1] = EventResult{ListEvent: event, Err: err}
			}
		}()
	}
	for i := 1; i < len(items); i++ {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}

func decodeItem(kind WidgetKind, index int, item Envelope) (ListEvent, error) {
	// Items a widget does not own are kept opaque.
	if item.MsgType != MsgTypeWidget {
		kind = WidgetUnrecognized
	}
	event, err := item.Event(kind)
	if err != nil {
		return ListEvent{Index: index, SenderID: item.SenderID}, fmt.Errorf("submessage %d: %w", index, err)
	}
	return ListEvent{Index: index, SenderID: item.SenderID, Event: event}, nil
}

// OptionKeys returns every option key a poll can be voted on after the
// given events: the canned keys of the initial options followed by the key
// of each NewOption, in arrival order and without duplicates.
func OptionKeys(def PollDefinition, events []ListEvent) []string {
	seen := make(map[string]struct{}, len(def.Options)+len(events))
	keys := make([]string, 0, len(def.Options)+len(events))
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, key := range def.CannedKeys() {
		add(key)
	}
	for _, e := range events {
		if opt, ok := e.Event.(NewOption); ok {
			add(opt.Key(e.SenderID))
		}
	}
	return keys
}
