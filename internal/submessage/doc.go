// Package submessage decodes the submessage protocol chat messages use to
// carry interactive widgets such as polls.
//
// A message owns an ordered list of submessages. Each item is an Envelope
// (sender id, msg_type, and JSON content encoded as text). The position of
// an item decides how its content is read:
//
//   - items[0] carries the WidgetDefinition, see DecodeDefinition;
//   - items[1:] carry events of the widget named by items[0], see
//     DecodeEvent, which takes the learned WidgetKind.
//
// Unknown tags at any layer are never errors. They decode to an
// Unrecognized variant that keeps the original document so it can be shown
// or re-sent untouched. Malformed items fail with errors matching
// ErrMalformedContent, ErrMalformedField or ErrMalformedKeyShape, and the
// failure is local to that one item.
//
// Everything here is a pure function of its input and safe for concurrent
// use. Items are decoded in arrival order; nothing is sorted.
package submessage
