// Package qrtoken encodes and decodes the payload printed on gate passes.
//
// A token is the base64url (unpadded) encoding of a small protobuf-wire
// message:
//
//	1: request_id  string
//	2: persons     packed varint (person indexes)
//	3: issued_at   varint (unix seconds)
//
// Only the request id is authoritative.  Everything else is a hint and is
// re-read from the live request before any decision is made.  Passes
// printed by the previous console carry a JSON object with an "id" field
// and are still accepted.
package qrtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	fieldRequestID protowire.Number = 1
	fieldPersons   protowire.Number = 2
	fieldIssuedAt  protowire.Number = 3

	maxTokenLen     = 2048
	maxRequestIDLen = 128
	maxPersonIndex  = 1 << 12
)

type Token struct {
	RequestID string    `json:"request_id"`
	Persons   []int     `json:"persons,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
}

func Encode(t Token) string {
	var b []byte
	b = protowire.AppendTag(b, fieldRequestID, protowire.BytesType)
	b = protowire.AppendString(b, t.RequestID)

	if len(t.Persons) > 0 {
		var packed []byte
		for _, p := range t.Persons {
			packed = protowire.AppendVarint(packed, uint64(p))
		}
		b = protowire.AppendTag(b, fieldPersons, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	if !t.IssuedAt.IsZero() {
		b = protowire.AppendTag(b, fieldIssuedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t.IssuedAt.Unix()))
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses either token format.  Any structural problem, or a token
// without a request id, yields ErrInvalidToken.
func Decode(raw string) (Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxTokenLen {
		return Token{}, ErrInvalidToken
	}

	var (
		t   Token
		err error
	)
	if strings.HasPrefix(raw, "{") {
		t, err = decodeLegacy(raw)
	} else {
		t, err = decodeWire(raw)
	}
	if err != nil {
		return Token{}, err
	}

	t.RequestID = strings.TrimSpace(t.RequestID)
	if t.RequestID == "" || len(t.RequestID) > maxRequestIDLen || !utf8.ValidString(t.RequestID) {
		return Token{}, fmt.Errorf("%w: missing or malformed request id", ErrInvalidToken)
	}
	return t, nil
}

func decodeLegacy(raw string) (Token, error) {
	var legacy struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Token{RequestID: legacy.ID}, nil
}

func decodeWire(raw string) (Token, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var t Token
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Token{}, wireErr(n)
		}
		b = b[n:]

		switch {
		case num == fieldRequestID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Token{}, wireErr(n)
			}
			t.RequestID = v
			b = b[n:]

		case num == fieldPersons && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Token{}, wireErr(n)
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return Token{}, wireErr(m)
				}
				if err := t.addPerson(v); err != nil {
					return Token{}, err
				}
				packed = packed[m:]
			}

		case num == fieldPersons && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Token{}, wireErr(n)
			}
			if err := t.addPerson(v); err != nil {
				return Token{}, err
			}
			b = b[n:]

		case num == fieldIssuedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Token{}, wireErr(n)
			}
			t.IssuedAt = time.Unix(int64(v), 0).UTC()
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Token{}, wireErr(n)
			}
			b = b[n:]
		}
	}
	return t, nil
}

func (t *Token) addPerson(v uint64) error {
	if v >= maxPersonIndex {
		return fmt.Errorf("%w: person index %d out of range", ErrInvalidToken, v)
	}
	t.Persons = append(t.Persons, int(v))
	return nil
}

func wireErr(n int) error {
	return fmt.Errorf("%w: %v", ErrInvalidToken, protowire.ParseError(n))
}
