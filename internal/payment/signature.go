package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of a callback body, optionally
// prefixed with "sha256=".
const SignatureHeader = "X-Callback-Signature"

var ErrBadSignature = errors.New("payment: missing or invalid callback signature")

// CallbackSigner signs and verifies callback bodies with a shared secret.
type CallbackSigner struct {
	secret []byte
}

func NewCallbackSigner(secret string) (*CallbackSigner, error) {
	if secret == "" {
		return nil, errors.New("payment: callback secret is required")
	}
	return &CallbackSigner{secret: []byte(secret)}, nil
}

func (s *CallbackSigner) Sign(body []byte) string {
	return "sha256=" + hex.EncodeToString(s.mac(body))
}

// Verify compares signature against body in constant time.
func (s *CallbackSigner) Verify(body []byte, signature string) error {
	raw := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if raw == "" {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(raw)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(got, s.mac(body)) {
		return ErrBadSignature
	}
	return nil
}

func (s *CallbackSigner) mac(body []byte) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(body)
	return m.Sum(nil)
}
