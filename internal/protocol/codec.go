package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxBodySize is the largest message body a 2-byte length prefix can carry.
const MaxBodySize = 65535

var (
	// ErrFraming marks a stream that closed mid-frame or delivered a
	// malformed length prefix. Fatal to the connection.
	ErrFraming = errors.New("framing error")

	ErrBodyTooLarge = errors.New("message body exceeds length prefix capacity")
)

// ReadPacket - reads one framed message: 2-byte big-endian length, then
// exactly that many body bytes. Blocks until the frame is complete or the
// stream closes. io.EOF on a clean close between frames.
func ReadPacket(r io.Reader) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: stream closed inside length prefix", ErrFraming)
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	body := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: stream closed inside body: %v", ErrFraming, err)
	}

	return body, nil
}

// WritePacket - writes one framed message.
func WritePacket(w io.Writer, body []byte) error {
	if len(body) > MaxBodySize {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(body)))

	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}

	return nil
}

// WriteMessage - marshals v and writes it as one frame.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return WritePacket(w, body)
}

// WriteStatus - writes a bare status-only response frame.
func WriteStatus(w io.Writer, status int) error {
	return WriteMessage(w, StatusOnly{Status: status})
}
