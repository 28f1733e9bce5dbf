package park

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	codecPrefix = "p1."
	// maxDecodedBytes bounds the decompressed size of a snapshot.
	maxDecodedBytes = 64 << 20
)

var ErrBadSnapshot = errors.New("malformed snapshot")

var encoding = base64.RawURLEncoding

// Encode serializes a snapshot into a compact text form suitable for local
// saves and network transfer.
func Encode(w WorldState) (string, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshalling snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing snapshot: %w", err)
	}

	return codecPrefix + encoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses text produced by Encode. The result is validated; on any
// error the zero WorldState is returned and the caller should keep its last
// good snapshot.
func Decode(s string) (WorldState, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(s), codecPrefix)
	if !ok {
		return WorldState{}, fmt.Errorf("%w: unknown format", ErrBadSnapshot)
	}

	compressed, err := encoding.DecodeString(body)
	if err != nil {
		return WorldState{}, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return WorldState{}, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	defer func() { _ = zr.Close() }()

	raw, err := io.ReadAll(io.LimitReader(zr, maxDecodedBytes+1))
	if err != nil {
		return WorldState{}, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if len(raw) > maxDecodedBytes {
		return WorldState{}, fmt.Errorf("%w: too large", ErrBadSnapshot)
	}

	var w WorldState
	if err := json.Unmarshal(raw, &w); err != nil {
		return WorldState{}, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if err := w.Validate(); err != nil {
		return WorldState{}, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	return w, nil
}
