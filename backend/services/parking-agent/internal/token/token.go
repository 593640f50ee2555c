// Package token decodes the payload of the session token issued by the identity
// endpoint. Signatures are not verified: the token is opaque to this client and
// only its expiry and subject are read.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode marks every token decoding failure.
var ErrDecode = errors.New("token: decode failed")

// DecodeError describes why a token payload could not be read.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token: %s: %v", e.Reason, e.Err)
	}
	return "token: " + e.Reason
}

// Unwrap exposes both the sentinel and the underlying parser error.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

// claims mirrors the payload fields issued by the identity endpoint.
type claims struct {
	SubjectID *int64 `json:"id"`
	jwt.RegisteredClaims
}

// Payload is the decoded, validated token payload.
type Payload struct {
	SubjectID int64
	ExpiresAt time.Time
}

// Valid reports whether the token is still usable at now.
func (p Payload) Valid(now time.Time) bool {
	return p.ExpiresAt.After(now)
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode splits the token, base64url-decodes its payload segment and extracts
// exp and id. Both fields are required. The header and signature segments are
// not inspected.
func Decode(raw string) (Payload, error) {
	if raw == "" {
		return Payload{}, &DecodeError{Reason: "empty token"}
	}
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return Payload{}, &DecodeError{Reason: "malformed token", Err: jwt.ErrTokenMalformed}
	}

	segment, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return Payload{}, &DecodeError{Reason: "malformed payload", Err: err}
	}
	var c claims
	if err := json.Unmarshal(segment, &c); err != nil {
		return Payload{}, &DecodeError{Reason: "malformed payload", Err: err}
	}
	if c.ExpiresAt == nil {
		return Payload{}, &DecodeError{Reason: "payload has no exp"}
	}
	if c.SubjectID == nil {
		return Payload{}, &DecodeError{Reason: "payload has no id"}
	}

	return Payload{
		SubjectID: *c.SubjectID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
