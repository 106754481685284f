package daemon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire format, all integers big-endian:
//
//	request:  [len:u32] [source:len bytes of UTF-8]
//	response: [status:u8] [len:u32] [body:len bytes of UTF-8]
//
// Status 0 is success; status 1 carries an error message as the body.
// Oversized lengths are rejected before the body is read.

const (
	// MaxRequestSize caps the declared request length.
	MaxRequestSize = 10 << 20 // 10 MiB

	// MaxResponseSize caps the declared response length on the client side.
	MaxResponseSize = 10 << 20 // 10 MiB
)

// Response status bytes.
const (
	StatusOK    byte = 0
	StatusError byte = 1
)

var (
	// ErrMessageTooLarge reports a declared length over the fixed maximum.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")

	// ErrInvalidStatus reports a response status byte that is neither
	// StatusOK nor StatusError.
	ErrInvalidStatus = errors.New("invalid response status byte")
)

// WriteRequest encodes one execution request.
func WriteRequest(w io.Writer, source string) error {
	if len(source) > MaxRequestSize {
		return fmt.Errorf("request of %d bytes: %w", len(source), ErrMessageTooLarge)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(source)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, source)
	return err
}

// ReadRequest decodes one execution request, rejecting oversized lengths
// before reading the body.
func ReadRequest(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxRequestSize {
		return "", fmt.Errorf("request of %d bytes: %w", n, ErrMessageTooLarge)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}
	return string(body), nil
}

// WriteResponse encodes one execution response.
func WriteResponse(w io.Writer, status byte, body string) error {
	buf := make([]byte, 5, 5+len(body))
	buf[0] = status
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(body)))
	buf = append(buf, body...)
	_, err := w.Write(buf)
	return err
}

// ReadResponse decodes one execution response, enforcing the client-side
// body size cap before reading the body.
func ReadResponse(r io.Reader) (byte, string, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, "", err
	}
	status := header[0]
	if status != StatusOK && status != StatusError {
		return 0, "", fmt.Errorf("status 0x%02x: %w", status, ErrInvalidStatus)
	}
	n := binary.BigEndian.Uint32(header[1:5])
	if n > MaxResponseSize {
		return 0, "", fmt.Errorf("response of %d bytes: %w", n, ErrMessageTooLarge)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, "", err
	}
	return status, string(body), nil
}
