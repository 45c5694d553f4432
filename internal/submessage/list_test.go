package submessage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func widgetItem(t *testing.T, senderID int64, content []byte, err error) Envelope {
	t.Helper()
	require.NoError(t, err)
	return Envelope{SenderID: senderID, MsgType: MsgTypeWidget, Content: string(content)}
}

func definitionItem(t *testing.T, senderID int64, def WidgetDefinition) Envelope {
	t.Helper()
	content, err := EncodeDefinition(def)
	return widgetItem(t, senderID, content, err)
}

func eventItem(t *testing.T, senderID int64, event PollEvent) Envelope {
	t.Helper()
	content, err := EncodeEvent(event)
	return widgetItem(t, senderID, content, err)
}

func collect(t *testing.T, items []Envelope) (WidgetDefinition, []ListEvent, []error) {
	t.Helper()
	def, seq, err := DecodeList(items)
	require.NoError(t, err)

	var events []ListEvent
	var errs []error
	for event, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, event)
	}
	return def, events, errs
}

func TestDecodeListEndToEnd(t *testing.T) {
	items := []Envelope{
		definitionItem(t, 3, PollDefinition{Question: "Lunch?", Options: []string{"Pizza", "Tacos"}}),
		eventItem(t, 7, NewOption{Option: "Sushi", Idx: 0}),
		eventItem(t, 3, VoteChanged{Key: "canned,0", Op: VoteAdd}),
	}

	def, events, errs := collect(t, items)
	require.Empty(t, errs)
	require.Equal(t, PollDefinition{Question: "Lunch?", Options: []string{"Pizza", "Tacos"}}, def)
	require.Equal(t, []ListEvent{
		{Index: 1, SenderID: 7, Event: NewOption{Option: "Sushi", Idx: 0}},
		{Index: 2, SenderID: 3, Event: VoteChanged{Key: "canned,0", Op: VoteAdd}},
	}, events)

	poll, ok := def.(PollDefinition)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"canned,0", "canned,1", "7,0"}, OptionKeys(poll, events))
}

func TestDecodeListKeepsArrivalOrder(t *testing.T) {
	items := []Envelope{
		definitionItem(t, 1, PollDefinition{Options: []string{}}),
		eventItem(t, 2, QuestionChanged{Question: "second"}),
		eventItem(t, 2, QuestionChanged{Question: "first"}),
	}

	_, events, errs := collect(t, items)
	require.Empty(t, errs)
	require.Len(t, events, 2)
	require.Equal(t, QuestionChanged{Question: "second"}, events[0].Event)
	require.Equal(t, QuestionChanged{Question: "first"}, events[1].Event)
}

func TestDecodeListIsolatesItemErrors(t *testing.T) {
	items := []Envelope{
		definitionItem(t, 1, PollDefinition{Question: "Q", Options: []string{"a"}}),
		{SenderID: 2, MsgType: MsgTypeWidget, Content: `{"type":"vote","key":"abc,1","vote":1}`},
		{SenderID: 2, MsgType: MsgTypeWidget, Content: `{"type":"new_option","option":"b"}`},
		{SenderID: 2, MsgType: MsgTypeWidget, Content: `not json`},
		eventItem(t, 4, VoteChanged{Key: "canned,0", Op: VoteAdd}),
	}

	_, seq, err := DecodeList(items)
	require.NoError(t, err)

	var got []error
	var last ListEvent
	for event, err := range seq {
		got = append(got, err)
		last = event
	}
	require.Len(t, got, 4)
	require.ErrorIs(t, got[0], ErrMalformedKeyShape)
	require.ErrorIs(t, got[1], ErrMalformedField)
	require.ErrorIs(t, got[2], ErrMalformedContent)
	require.NoError(t, got[3])
	require.Equal(t, ListEvent{Index: 4, SenderID: 4, Event: VoteChanged{Key: "canned,0", Op: VoteAdd}}, last)
}

func TestDecodeListUnrecognizedWidget(t *testing.T) {
	items := []Envelope{
		{SenderID: 1, MsgType: MsgTypeWidget, Content: `{"widget_type":"todo","extra_data":{}}`},
		{SenderID: 2, MsgType: MsgTypeWidget, Content: `{"type":"vote","key":"junk","vote":1}`},
	}

	def, events, errs := collect(t, items)
	require.Empty(t, errs)
	require.Equal(t, WidgetUnrecognized, def.Kind())
	require.Len(t, events, 1)
	require.IsType(t, UnrecognizedEvent{}, events[0].Event)
}

func TestDecodeListUnrecognizedItem(t *testing.T) {
	items := []Envelope{
		definitionItem(t, 1, PollDefinition{Options: []string{"a"}}),
		{SenderID: 2, MsgType: MsgTypeUnrecognized, Content: `{"type":"vote","key":"junk","vote":1}`},
	}

	_, events, errs := collect(t, items)
	require.Empty(t, errs)
	require.IsType(t, UnrecognizedEvent{}, events[0].Event)
}

func TestDecodeListErrors(t *testing.T) {
	_, _, err := DecodeList(nil)
	require.ErrorIs(t, err, ErrEmptyList)

	_, _, err = DecodeList([]Envelope{{SenderID: 1, MsgType: MsgTypeWidget, Content: `{"widget_type":"poll","extra_data":{"options":"x"}}`}})
	require.ErrorIs(t, err, ErrMalformedField)
}

func TestDecodeListStopsEarly(t *testing.T) {
	items := []Envelope{
		definitionItem(t, 1, PollDefinition{Options: []string{}}),
		eventItem(t, 2, QuestionChanged{Question: "a"}),
		eventItem(t, 2, QuestionChanged{Question: "b"}),
		eventItem(t, 2, QuestionChanged{Question: "c"}),
	}
	_, seq, err := DecodeList(items)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestDecodeEventsMatchesSequentialDecode(t *testing.T) {
	items := []Envelope{definitionItem(t, 1, PollDefinition{Options: []string{"a", "b"}})}
	for i := 0; i < 50; i++ {
		switch i % 4 {
		case 0:
			items = append(items, eventItem(t, int64(i), NewOption{Option: "opt", Idx: i}))
		case 1:
			items = append(items, eventItem(t, int64(i), VoteChanged{Key: CannedKey(i % 2), Op: VoteAdd}))
		case 2:
			items = append(items, Envelope{SenderID: int64(i), MsgType: MsgTypeWidget, Content: `{"type":"vote","key":"x,1","vote":1}`})
		default:
			items = append(items, eventItem(t, int64(i), QuestionChanged{Question: "q"}))
		}
	}

	_, seq, err := DecodeList(items)
	require.NoError(t, err)
	var sequential []EventResult
	for event, err := range seq {
		sequential = append(sequential, EventResult{ListEvent: event, Err: err})
	}

	parallel := DecodeEvents(WidgetPoll, items)
	require.Len(t, parallel, len(sequential))
	for i := range parallel {
		require.Equal(t, sequential[i].ListEvent, parallel[i].ListEvent)
		if sequential[i].Err != nil {
			require.EqualError(t, parallel[i].Err, sequential[i].Err.Error())
		} else {
			require.NoError(t, parallel[i].Err)
		}
	}

	require.Nil(t, DecodeEvents(WidgetPoll, items[:1]))
}

func TestDecodeItemIndependence(t *testing.T) {
	base := []Envelope{
		definitionItem(t, 1, PollDefinition{Options: []string{"a"}}),
		eventItem(t, 2, NewOption{Option: "b", Idx: 0}),
		eventItem(t, 3, VoteChanged{Key: "2,0", Op: VoteAdd}),
	}
	mutated := append([]Envelope(nil), base...)
	mutated[1] = Envelope{SenderID: 9, MsgType: MsgTypeWidget, Content: `{"type":"question","question":"changed"}`}

	a := DecodeEvents(WidgetPoll, base)
	b := DecodeEvents(WidgetPoll, mutated)
	require.Equal(t, a[1], b[1])
}

func TestOptionKeysDeduplicates(t *testing.T) {
	def := PollDefinition{Options: []string{"a"}}
	events := []ListEvent{
		{Index: 1, SenderID: 5, Event: NewOption{Option: "b", Idx: 0}},
		{Index: 2, SenderID: 5, Event: NewOption{Option: "b again", Idx: 0}},
		{Index: 3, SenderID: 6, Event: QuestionChanged{Question: "q"}},
		{Index: 4, SenderID: 6, Event: NewOption{Option: "c", Idx: 0}},
	}
	require.Equal(t, []string{"canned,0", "5,0", "6,0"}, OptionKeys(def, events))
}
