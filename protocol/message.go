// File: protocol/message.go
// Package protocol implements the length-prefixed task wire format.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP delivers a continuous byte stream with no message boundaries, so
// every message carries a fixed 9-byte header:
//
//	┌──────────┬──────────┬─────────────┬─────────────────────┐
//	│  1 byte  │  4 bytes │   4 bytes   │  payload_len bytes  │
//	│   type   │    id    │ payload_len │      payload        │
//	└──────────┴──────────┴─────────────┴─────────────────────┘
//
// Multi-byte fields are big-endian, network byte order.

package protocol

// MessageType discriminates wire messages.
type MessageType byte

// Wire message types.
const (
	TypeRequest  MessageType = 0x01 // client → server: submit a task
	TypeResponse MessageType = 0x02 // server → client: task result
	TypeError    MessageType = 0x03 // server → client: error message
	TypePing     MessageType = 0x04 // client → server: liveness check
	TypePong     MessageType = 0x05 // server → client: liveness reply
)

// HeaderSize is the fixed frame header length.
const HeaderSize = 9

// MaxPayload bounds a single frame's payload. Frames above the bound are
// rejected on both encode and decode to keep a malicious or buggy peer
// from exhausting memory.
const MaxPayload = 64 << 20 // 64 MiB

// Message is the unit of communication. The id is echoed in the response
// so a client can match responses to pipelined requests.
type Message struct {
	Type    MessageType
	ID      uint32
	Payload []byte
}

// PayloadString returns the payload as a string.
func (m *Message) PayloadString() string {
	return string(m.Payload)
}
