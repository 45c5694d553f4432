package submessage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Envelope
		wantErr error
		field   string
	}{
		{
			name:  "widget",
			input: `{"sender_id": 7, "msg_type": "widget", "content": "{\"type\":\"vote\"}"}`,
			want:  Envelope{SenderID: 7, MsgType: MsgTypeWidget, Content: `{"type":"vote"}`},
		},
		{
			name:  "unknown msg_type",
			input: `{"sender_id": 7, "msg_type": "sticker", "content": "{}"}`,
			want:  Envelope{SenderID: 7, MsgType: MsgTypeUnrecognized, Content: "{}"},
		},
		{
			name:  "msg_type is case sensitive",
			input: `{"sender_id": 7, "msg_type": "Widget", "content": "{}"}`,
			want:  Envelope{SenderID: 7, MsgType: MsgTypeUnrecognized, Content: "{}"},
		},
		{
			name:  "missing msg_type",
			input: `{"sender_id": 7, "content": "{}"}`,
			want:  Envelope{SenderID: 7, MsgType: MsgTypeUnrecognized, Content: "{}"},
		},
		{
			name:  "non-string msg_type",
			input: `{"sender_id": 7, "msg_type": 3, "content": "{}"}`,
			want:  Envelope{SenderID: 7, MsgType: MsgTypeUnrecognized, Content: "{}"},
		},
		{
			name:    "missing sender_id",
			input:   `{"msg_type": "widget", "content": "{}"}`,
			wantErr: ErrMalformedField,
			field:   "sender_id",
		},
		{
			name:    "string sender_id",
			input:   `{"sender_id": "7", "msg_type": "widget", "content": "{}"}`,
			wantErr: ErrMalformedField,
			field:   "sender_id",
		},
		{
			name:    "fractional sender_id",
			input:   `{"sender_id": 7.5, "msg_type": "widget", "content": "{}"}`,
			wantErr: ErrMalformedField,
			field:   "sender_id",
		},
		{
			name:    "missing content",
			input:   `{"sender_id": 7, "msg_type": "widget"}`,
			wantErr: ErrMalformedField,
			field:   "content",
		},
		{
			name:    "object content",
			input:   `{"sender_id": 7, "msg_type": "widget", "content": {"type": "vote"}}`,
			wantErr: ErrMalformedField,
			field:   "content",
		},
		{
			name:    "not an object",
			input:   `[1, 2]`,
			wantErr: ErrMalformedContent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEnvelope([]byte(tc.input))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				if tc.field != "" {
					var fieldErr *FieldError
					require.True(t, errors.As(err, &fieldErr))
					require.Equal(t, tc.field, fieldErr.Field)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := EncodeEnvelope(Envelope{SenderID: 3, MsgType: MsgTypeWidget, Content: "{}"})
	require.NoError(t, err)
	require.JSONEq(t, `{"sender_id":3,"msg_type":"widget","content":"{}"}`, string(data))

	// The original unknown literal is not retained.
	decoded, err := DecodeEnvelope([]byte(`{"sender_id":3,"msg_type":"sticker","content":"x"}`))
	require.NoError(t, err)
	data, err = EncodeEnvelope(decoded)
	require.NoError(t, err)
	require.JSONEq(t, `{"sender_id":3,"msg_type":"unrecognized","content":"x"}`, string(data))
}

func TestEnvelopeJSON(t *testing.T) {
	original := []Envelope{
		{SenderID: 1, MsgType: MsgTypeWidget, Content: `{"widget_type":"poll"}`},
		{SenderID: 2, MsgType: MsgTypeWidget, Content: `{"type":"question","question":"?"}`},
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded []Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)

	var single Envelope
	err = json.Unmarshal([]byte(`{"msg_type":"widget","content":"{}"}`), &single)
	require.ErrorIs(t, err, ErrMalformedField)
}

func TestEnvelopeJSONNull(t *testing.T) {
	env := Envelope{SenderID: 3, MsgType: MsgTypeWidget, Content: "{}"}
	require.NoError(t, json.Unmarshal([]byte(`null`), &env))
	require.Equal(t, Envelope{SenderID: 3, MsgType: MsgTypeWidget, Content: "{}"}, env)

	var list []Envelope
	require.NoError(t, json.Unmarshal([]byte(`[null]`), &list))
	require.Equal(t, []Envelope{{}}, list)
}

func TestParseMsgType(t *testing.T) {
	require.Equal(t, MsgTypeWidget, ParseMsgType("widget"))
	require.Equal(t, MsgTypeUnrecognized, ParseMsgType(""))
	require.Equal(t, "widget", MsgTypeWidget.String())
	require.Equal(t, "unrecognized", MsgTypeUnrecognized.String())
}
