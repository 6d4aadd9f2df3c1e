package coordinator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
)

// MaxDecompressedSize bounds a gzip-compressed selection payload.
const MaxDecompressedSize = 16 * 1024 * 1024

var (
	// ErrEmptyPayload is returned for a zero-length body.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrPayloadTooLarge is returned when a compressed body inflates past MaxDecompressedSize.
	ErrPayloadTooLarge = errors.New("decompressed payload too large")
)

// klauspost gzip.Reader keeps ~32KB of state; reuse it via Reset.
var gzipReaderPool sync.Pool

// DecodePayload decodes a selection request body into the loose value
// Normalize consumes. Bodies starting with the gzip magic are inflated
// first. A content type mentioning msgpack selects MessagePack, anything
// else is read as JSON. An object wrapping the list under "ids" or
// "selection" is unwrapped.
func DecodePayload(contentType string, body []byte) (any, error) {
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}
	body, err := Inflate(body)
	if err != nil {
		return nil, err
	}

	var raw any
	if strings.Contains(strings.ToLower(contentType), "msgpack") {
		if err := msgpack.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("invalid msgpack payload: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid json payload: %w", err)
		}
	}
	return unwrap(raw), nil
}

// Inflate returns body decompressed when it starts with the gzip magic and
// unchanged otherwise.
func Inflate(body []byte) ([]byte, error) {
	if !isGzip(body) {
		return body, nil
	}
	return gunzip(body)
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	var reader *gzip.Reader
	var err error
	if pooled := gzipReaderPool.Get(); pooled != nil {
		reader = pooled.(*gzip.Reader)
		err = reader.Reset(bytes.NewReader(data))
	} else {
		reader, err = gzip.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid gzip compression: %w", err)
	}
	defer gzipReaderPool.Put(reader)

	out, err := io.ReadAll(io.LimitReader(reader, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, ErrPayloadTooLarge
	}
	return out, nil
}

func unwrap(raw any) any {
	switch m := raw.(type) {
	case map[string]any:
		for _, key := range []string{"ids", "selection"} {
			if v, ok := m[key]; ok {
				return v
			}
		}
	case map[any]any:
		for _, key := range []string{"ids", "selection"} {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	return raw
}
