package daemon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	for _, source := range []string{"", "2 + 3", "print(42)", strings.Repeat("x = 1\n", 1000)} {
		var buf bytes.Buffer
		if err := WriteRequest(&buf, source); err != nil {
			t.Fatalf("WriteRequest: %v", err)
		}
		got, err := ReadRequest(&buf)
		if err != nil {
			t.Fatalf("ReadRequest: %v", err)
		}
		if got != source {
			t.Errorf("round trip changed source: %d bytes in, %d out", len(source), len(got))
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		status byte
		body   string
	}{
		{StatusOK, "5"},
		{StatusOK, ""},
		{StatusOK, "1\n2\n3\n"},
		{StatusError, "runtime error at instruction 2: Division by zero"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := WriteResponse(&buf, tt.status, tt.body); err != nil {
			t.Fatalf("WriteResponse: %v", err)
		}
		status, body, err := ReadResponse(&buf)
		if err != nil {
			t.Fatalf("ReadResponse: %v", err)
		}
		if status != tt.status || body != tt.body {
			t.Errorf("round trip = (%d, %q), want (%d, %q)", status, body, tt.status, tt.body)
		}
	}
}

func TestRequestLengthPrefixIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, "abcd"); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	if len(raw) != 8 {
		t.Fatalf("encoded length = %d, want 8", len(raw))
	}
	if n := binary.BigEndian.Uint32(raw[:4]); n != 4 {
		t.Errorf("length prefix = %d, want 4", n)
	}
	if string(raw[4:]) != "abcd" {
		t.Errorf("body = %q, want abcd", raw[4:])
	}
}

func TestReadRequestRejectsOversize(t *testing.T) {
	// An oversized declared length must be rejected from the header
	// alone, before any body bytes are read.
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxRequestSize+1)

	_, err := ReadRequest(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("error = %v, want ErrMessageTooLarge", err)
	}
}

func TestWriteRequestRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRequest(&buf, strings.Repeat("a", MaxRequestSize+1))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("error = %v, want ErrMessageTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written for rejected request", buf.Len())
	}
}

func TestReadResponseRejectsBadStatus(t *testing.T) {
	raw := []byte{0xFF, 0, 0, 0, 0}
	_, _, err := ReadResponse(bytes.NewReader(raw))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestReadResponseRejectsOversize(t *testing.T) {
	raw := make([]byte, 5)
	raw[0] = StatusOK
	binary.BigEndian.PutUint32(raw[1:], MaxResponseSize+1)

	_, _, err := ReadResponse(bytes.NewReader(raw))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("error = %v, want ErrMessageTooLarge", err)
	}
}

func TestReadRequestTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, "2 + 3"); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]

	_, err := ReadRequest(bytes.NewReader(truncated))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
	}
}
