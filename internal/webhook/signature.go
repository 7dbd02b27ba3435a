package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/mwl-dev/lemongate/internal/apperr"
)

// HeaderSignature carries the hex HMAC-SHA256 of the raw request body.
const HeaderSignature = "X-Signature"

var (
	ErrMissingSignature = apperr.Authentication(400, `"X-Signature" not exists`)
	ErrInvalidSignature = apperr.Authentication(400, `invalid "X-Signature"`)
)

// VerifySignature checks the provider's signature over the exact raw
// body bytes. Verification must never run against a re-serialized body:
// JSON re-encoding is not byte-stable and would break the digest.
func VerifySignature(signature string, body []byte, secret string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(digest), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
