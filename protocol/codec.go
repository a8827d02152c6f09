// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame encode/decode over io.Writer/io.Reader with exact I/O:
// binary protocols must read complete frames, so decoding uses
// io.ReadFull rather than single Read calls.

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/momentics/taskring/api"
)

// Encode serializes msg into a fresh buffer ready to write to a stream.
func Encode(msg *Message) ([]byte, error) {
	if len(msg.Payload) > MaxPayload {
		return nil, fmt.Errorf("protocol: encode %d bytes: %w",
			len(msg.Payload), api.ErrPayloadTooLarge)
	}
	buf := make([]byte, HeaderSize+len(msg.Payload))
	buf[0] = byte(msg.Type)
	binary.BigEndian.PutUint32(buf[1:5], msg.ID)
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(msg.Payload)))
	copy(buf[HeaderSize:], msg.Payload)
	return buf, nil
}

// WriteMessage encodes msg and writes the full frame to w.
func WriteMessage(w io.Writer, msg *Message) error {
	buf, err := Encode(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}

// ReadMessage reads exactly one frame from r.
// Returns io.EOF unchanged when the stream ends cleanly between frames.
func ReadMessage(r io.Reader) (*Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("protocol: read header: %w", err)
	}

	msg := &Message{
		Type: MessageType(header[0]),
		ID:   binary.BigEndian.Uint32(header[1:5]),
	}
	payloadLen := binary.BigEndian.Uint32(header[5:9])
	if payloadLen > MaxPayload {
		return nil, fmt.Errorf("protocol: frame of %d bytes: %w",
			payloadLen, api.ErrPayloadTooLarge)
	}
	if payloadLen > 0 {
		msg.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return nil, fmt.Errorf("protocol: read payload: %w", err)
		}
	}
	return msg, nil
}
