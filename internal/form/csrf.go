// internal/form/csrf.go
//
// Pesquisa – Forms subsystem: stateless CSRF tokens.
//
// Context
//   The intake and login pages embed a hidden `csrf_token` input.  On POST the
//   handler verifies the token so only forms this service rendered are
//   accepted.  Tokens are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   A Signer owns the key.  The key comes from configuration (`csrf.key`,
//   base64url, at least 32 bytes); when absent a random key is generated and
//   tokens stop verifying after a restart.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size // nonce + ts + sig

	// DefaultTokenAge bounds how long a rendered form stays submittable.
	DefaultTokenAge = 2 * time.Hour
)

// Signer issues and verifies CSRF tokens.  Safe for concurrent use.
type Signer struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner decodes a base64url key.  An empty key yields an ephemeral random
// one and a warning; a malformed or short key is an error.
func NewSigner(b64Key string, maxAge time.Duration) (*Signer, error) {
	if maxAge <= 0 {
		maxAge = DefaultTokenAge
	}
	s := &Signer{maxAge: maxAge, now: time.Now}

	if b64Key == "" {
		s.key = make([]byte, 32)
		if _, err := rand.Read(s.key); err != nil {
			return nil, err
		}
		zap.S().Warnw("csrf key not configured, using ephemeral key")
		return s, nil
	}

	key, err := base64.RawURLEncoding.DecodeString(b64Key)
	if err != nil {
		return nil, fmt.Errorf("csrf key: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("csrf key: need at least 32 bytes, got %d", len(key))
	}
	s.key = key
	return s, nil
}

// Token creates a new token.  Call once per form render.
func (s *Signer) Token() (string, error) {
	buf := make([]byte, nonceBytes, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.now().UnixMicro()))
	buf = append(buf, s.sign(buf)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok passes HMAC and age checks.
func (s *Signer) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	body, sig := raw[:nonceBytes+8], raw[nonceBytes+8:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(body[nonceBytes:])))
	now := s.now()
	if now.Sub(issued) > s.maxAge || issued.Sub(now) > time.Minute {
		return false // expired, or from the future beyond clock skew
	}

	return hmac.Equal(sig, s.sign(body))
}

func (s *Signer) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return mac.Sum(nil)
}
