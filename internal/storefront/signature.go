// Package storefront verifies webhook payload authenticity.
package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrStaleSignature   = errors.New("stale_signature")
)

// Tolerance is how far a signed timestamp may lag before the delivery is
// treated as a replay.
const Tolerance = 5 * time.Minute

// Verifier checks the X-Storefront-Signature header:
// "t=<unix>,v1=<hex HMAC-SHA256(secret, "<t>.<body>")>".
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Enabled reports whether a shared secret is configured. Without one,
// verification is skipped (local development).
func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

// Verify validates the signature header against the raw payload.
func (v *Verifier) Verify(payload []byte, header string, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	signedAt := time.Unix(seconds, 0)
	if now.Sub(signedAt) > Tolerance || signedAt.Sub(now) > Tolerance {
		return ErrStaleSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign produces a header value for the payload. Used by tests and the
// storefront simulator.
func (v *Verifier) Sign(payload []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		key, value, found := strings.Cut(part, "=")
		if !found {
			return "", nil, ErrInvalidSignature
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return "", nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
