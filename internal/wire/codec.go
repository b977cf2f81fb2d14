package wire

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
)

// ErrLineTooLong stands for a single line exceeding config.MaxLineBytes; the
// caller must close the connection. The Scanner itself reports
// bufio.ErrTooLong, which transport.TranslateScanErr maps to this value.
var ErrLineTooLong = errors.New("wire: line exceeds maximum frame size")

// NewScanner returns a bufio.Scanner configured to read newline-delimited
// JSON lines with a hard cap on line length.
func NewScanner(r io.Reader, maxLine int) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLine)
	return s
}

// DecodeTag extracts just the "t" field from a line, so the caller can
// dispatch to the correct concrete type before doing a second, full decode.
func DecodeTag(line []byte) (Tag, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// Decode unmarshals a line into v.
func Decode(line []byte, v interface{}) error {
	return json.Unmarshal(line, v)
}

// Encode marshals v and appends the newline frame terminator.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// IsBlank reports whether a scanned line is empty and should be skipped.
func IsBlank(line []byte) bool {
	return len(line) == 0
}
