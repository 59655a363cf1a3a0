// Package wire defines the two formats Beacon moves events in: JSON frames
// exchanged with WebSocket clients, and CBOR envelopes exchanged between
// server instances over the broker.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Control events exchanged with clients. Domain events use their own names.
const (
	EventConnectionEstablished = "connection_established"
	EventSubscribe             = "subscribe"
	EventUnsubscribe           = "unsubscribe"
	EventSubscriptionSucceeded = "subscription_succeeded"
	EventSubscriptionError     = "subscription_error"
	EventPing                  = "ping"
	EventPong                  = "pong"
	EventError                 = "error"

	// ClientEventPrefix marks events a client whispers to other subscribers.
	ClientEventPrefix = "client-"
	EventClientTyping = "client-typing"
)

// ErrEmptyEnvelope is returned when decoding an envelope without channel or event.
var ErrEmptyEnvelope = errors.New("wire: envelope missing channel or event") //nolint:gochecknoglobals // sentinel error

// Frame is one JSON message on a client connection.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ConnectionEstablished is the data of the first frame on every connection.
type ConnectionEstablished struct {
	SocketID string `json:"socket_id"`
}

// TypingWhisper is the data a client sends with client-typing.
type TypingWhisper struct {
	Typing bool `json:"typing"`
}

// Envelope carries one encoded event to one channel. ExcludeSocket names the
// originating connection, which must not receive it.
type Envelope struct {
	Channel       string `cbor:"1,keyasint"`
	Event         string `cbor:"2,keyasint"`
	Data          []byte `cbor:"3,keyasint"`
	ExcludeSocket string `cbor:"4,keyasint,omitempty"`
}

// Frame converts the envelope into the frame delivered to subscribers.
func (e Envelope) Frame() Frame {
	return Frame{Event: e.Event, Channel: e.Channel, Data: json.RawMessage(e.Data)}
}

var encMode = func() cbor.EncMode { //nolint:gochecknoglobals // immutable codec mode
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// EncodeEnvelope serialises an envelope for the broker.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	if e.Channel == "" || e.Event == "" {
		return nil, fmt.Errorf("wire.EncodeEnvelope: %w", ErrEmptyEnvelope)
	}
	b, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("wire.EncodeEnvelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope parses a broker payload.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("wire.DecodeEnvelope: %w", err)
	}
	if e.Channel == "" || e.Event == "" {
		return Envelope{}, fmt.Errorf("wire.DecodeEnvelope: %w", ErrEmptyEnvelope)
	}
	return e, nil
}

// Control builds a data-less control frame for a channel.
func Control(evt, ch string) Frame {
	return Frame{Event: evt, Channel: ch}
}
