package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// hashDomain is the domain-separation prefix for state hashes. The version
// suffix enables future algorithm migration without ambiguity.
const hashDomain = "walletsync/state/v1"

// MarshalCanonical produces a canonical JSON rendering of the document:
// object keys sorted, strings NFC normalized, no HTML escaping, numbers as
// their shortest JSON literal. Two documents with the same content always
// produce the same bytes regardless of field population order, which is
// what StateHash and the golden tests rely on.
func MarshalCanonical(d GlobalData) ([]byte, error) {
	plain, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber() // preserve number literals; float64 round-trips lose precision
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("reparse document: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StateHash returns the SHA-256 of the canonical rendering, hex encoded,
// with domain separation. The engine compares state hashes to decide
// whether a merge changed anything and whether to re-broadcast.
func StateHash(d GlobalData) (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00}) // null separator prevents domain/data ambiguity
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentHash hashes only the replicated ledger content: device-local
// fields (device id, active book, sync and backup settings, the
// current-user flag) are cleared before hashing. Two devices holding the
// same ledger produce the same content hash even though their state
// hashes differ, which is what the engine's echo suppression compares.
func ContentHash(d GlobalData) (string, error) {
	c := d.Clone()
	c.DeviceID = ""
	c.ActiveBookID = ""
	c.SyncConfig = nil
	c.BackupConfig = nil
	for i := range c.Users {
		c.Users[i].IsCurrentUser = false
	}
	return StateHash(c)
}

// MustStateHash is StateHash for inputs known to be valid. Test helper.
func MustStateHash(d GlobalData) string {
	h, err := StateHash(d)
	if err != nil {
		panic(err)
	}
	return h
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type in canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString emits a JSON string with NFC normalization and no
// HTML escaping (< > & stay literal).
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	out := tmp.Bytes()
	// json.Encoder appends a trailing newline.
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	buf.Write(out)
	return nil
}
