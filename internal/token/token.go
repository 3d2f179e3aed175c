// Package token implements the self-contained session token format:
// a canonical-JSON payload signed with HMAC-SHA256 under a revocable
// per-user secret. The wire form is
//
//	base64(HMAC-SHA256(secretValue, dataSegment)) + ":" + dataSegment
//
// where dataSegment = base64(canonicalJSON(payload)). The standard base64
// alphabet never produces ":", so splitting on it is unambiguous.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Separator joins the signature segment and the data segment.
const Separator = ":"

// ErrInvalidToken is returned by Parse for any malformed wire string or
// undecodable/ill-shaped payload. Callers treat it as "unauthenticated".
var ErrInvalidToken = errors.New("invalid token")

// PayloadData is the identity claim carried by a token.
type PayloadData struct {
	// UserID identifies the owning user.
	UserID string `json:"userId"`
	// Username is the user's login name at signing time.
	Username string `json:"username"`
	// SecretID is the public key of the secret the token was signed with.
	SecretID string `json:"secretId"`
}

// Payload is the structured, signed content of a token. ExpiredTime is
// serialized as an explicit null when absent; a payload without it never
// expires by itself and its validity is governed solely by the bound
// secret's lifecycle.
type Payload struct {
	CreatedTime time.Time   `json:"createdTime"`
	ExpiredTime *time.Time  `json:"expiredTime"`
	Data        PayloadData `json:"data"`
}

// CanonicalJSON encodes the payload with object keys sorted
// lexicographically at every nesting level, so structurally equal payloads
// always produce byte-identical output regardless of field order. The
// signature is computed over these bytes, so canonicalization is what keeps
// re-signing deterministic.
func CanonicalJSON(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	// Round-trip through generic maps: encoding/json writes map keys in
	// sorted order at every level.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Sign canonically encodes the payload and returns the signed wire string.
// It is a pure function: the same secret and payload always produce the
// same token.
func Sign(secretValue string, p Payload) (string, error) {
	canonical, err := CanonicalJSON(p)
	if err != nil {
		return "", err
	}
	dataSegment := base64.StdEncoding.EncodeToString(canonical)

	mac := hmac.New(sha256.New, []byte(secretValue))
	mac.Write([]byte(dataSegment))
	signSegment := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return signSegment + Separator + dataSegment, nil
}

// Parse recovers the payload from a token string, checking format only.
// It performs no cryptographic verification: a parsed token is untrusted
// until Verify has accepted it against the bound secret's value.
func Parse(tokenString string) (Payload, error) {
	var p Payload

	parts := strings.Split(tokenString, Separator)
	if len(parts) != 2 {
		return p, ErrInvalidToken
	}

	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return p, ErrInvalidToken
	}

	// Shape check on the generic form first: the expiredTime key must be
	// present (possibly null) and data must carry all three identity fields.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil || shape == nil {
		return p, ErrInvalidToken
	}
	if _, ok := shape["expiredTime"]; !ok {
		return p, ErrInvalidToken
	}
	dataRaw, ok := shape["data"]
	if !ok {
		return p, ErrInvalidToken
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(dataRaw, &data); err != nil || data == nil {
		return p, ErrInvalidToken
	}
	for _, field := range []string{"userId", "username", "secretId"} {
		if _, ok := data[field]; !ok {
			return p, ErrInvalidToken
		}
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrInvalidToken
	}
	return p, nil
}

// IsExpired reports whether the payload self-reports expiry at the given
// instant. A payload with no ExpiredTime is never expired by this check.
func IsExpired(p Payload, now time.Time) bool {
	return p.ExpiredTime != nil && p.ExpiredTime.Before(now)
}

// Verify checks a token string against a secret value: the recomputed
// signature must match and the payload must not self-report expiry.
// Malformed input yields false, never an error. Signature comparison is
// constant-time.
func Verify(tokenString, secretValue string, now time.Time) bool {
	parts := strings.Split(tokenString, Separator)
	if len(parts) != 2 {
		return false
	}
	signSegment, dataSegment := parts[0], parts[1]

	mac := hmac.New(sha256.New, []byte(secretValue))
	mac.Write([]byte(dataSegment))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	p, err := Parse(tokenString)
	if err != nil {
		return false
	}
	if IsExpired(p, now) {
		return false
	}

	return hmac.Equal([]byte(signSegment), []byte(expected))
}
