// Package codec serializes documents for storage and converts typed
// instances to their plain document form.
//
// Stored blobs are a fixed header followed by a msgpack payload, lz4 block
// compressed when that makes it smaller. msgpack keeps time.Time values as
// dates, which JSON would flatten to strings.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/solatis/docupdate/internal/types"
)

const (
	// Magic identifies a docupdate blob.
	Magic = "DUDC"
	// FormatVersion is the current blob layout.
	FormatVersion = 1

	flagLZ4 = 1 << 0
)

// Header precedes every encoded document.
type Header struct {
	Magic    [4]byte
	Version  uint8
	Flags    uint8
	Reserved [2]byte
	RawLen   uint32 // payload length before compression
}

const headerSize = 12

// Encode serializes doc. Holes (types.Undefined) are written as nil.
func Encode(doc any, compress bool) ([]byte, error) {
	raw, err := marshal(stripUndefined(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	header := Header{
		Magic:   [4]byte{Magic[0], Magic[1], Magic[2], Magic[3]},
		Version: FormatVersion,
		RawLen:  uint32(len(raw)),
	}
	payload := raw
	if compress {
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		var hashTable [1 << 16]int
		n, err := lz4.CompressBlock(raw, buf, hashTable[:])
		if err != nil {
			return nil, fmt.Errorf("failed to compress data: %w", err)
		}
		// n == 0 means the input is incompressible
		if n > 0 && n < len(raw) {
			payload = buf[:n]
			header.Flags |= flagLZ4
		}
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(payload))
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	out.Write(payload)
	return out.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (any, error) {
	var header Header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != Magic {
		return nil, fmt.Errorf("invalid document format: expected %s, got %q", Magic, string(header.Magic[:]))
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported document version: %d", header.Version)
	}

	payload := data[headerSize:]
	if header.Flags&flagLZ4 != 0 {
		raw := make([]byte, header.RawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		if n != int(header.RawLen) {
			return nil, fmt.Errorf("failed to decompress data: got %d bytes, want %d", n, header.RawLen)
		}
		payload = raw
	}

	doc, err := unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return doc, nil
}

// ToPlain converts a typed instance into a document tree of maps, slices
// and scalars. Struct fields are named by their json tags. Values that are
// already plain are returned as is.
func ToPlain(v any) (any, error) {
	if types.KindOf(v) != types.KindInstance {
		return v, nil
	}
	raw, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert %T to plain form: %w", v, err)
	}
	return unmarshal(raw)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalize(out), nil
}

// normalize maps decoded values onto the document value set: string-keyed
// maps, []any, int64 and float64 numbers, UTC dates.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case uint64:
		return int64(t)
	case uint32:
		return int64(t)
	case uint16:
		return int64(t)
	case uint8:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

// stripUndefined returns a copy of doc with every types.Undefined replaced
// by nil.
func stripUndefined(doc any) any {
	switch t := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = stripUndefined(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stripUndefined(e)
		}
		return out
	default:
		if doc == types.Undefined {
			return nil
		}
		return doc
	}
}
