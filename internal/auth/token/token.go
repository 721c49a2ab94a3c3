package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Issuer generates the opaque credential material persisted onto user
// records. It has no persistence side effects; callers store the returned
// values.
type Issuer struct{}

func NewIssuer() *Issuer {
	return &Issuer{}
}

const sessionTokenBytes = 32

// NewSessionToken returns a high-entropy, URL-safe opaque session token.
// 256 bits of randomness make collisions with previously issued tokens
// negligible, so the value is treated as globally unique.
func (i *Issuer) NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

const pairingCodeDigits = "0123456789"

// NewPairingCode returns a short numeric code suitable for manual entry on a
// headset. It does not carry the session token's uniqueness guarantee; callers
// retry when the new code equals the principal's current one.
func (i *Issuer) NewPairingCode(length int) (string, error) {
	if length <= 0 {
		length = 4
	}
	code := make([]byte, length)
	max := big.NewInt(int64(len(pairingCodeDigits)))
	for n := range code {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pairing code: %w", err)
		}
		code[n] = pairingCodeDigits[idx.Int64()]
	}
	return string(code), nil
}

const resetCodeBytes = 3

// NewResetCode returns a short uppercase hex code for password reset mails.
func (i *Issuer) NewResetCode() (string, error) {
	buf := make([]byte, resetCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%X", buf), nil
}
