package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed storage token")

	ErrExpired = errors.New("storage token expired")

	ErrBadSignature = errors.New("storage token signature mismatch")
)

// Grant names what a token holder may do with a single blob.
type Grant struct {
	Container   string    `json:"container"`
	Blob        string    `json:"blob"`
	Permissions string    `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issuer mints and verifies HMAC-signed storage access tokens. Tokens are
// base64url(JSON grant) + "." + hex HMAC-SHA256 over the encoded grant.
type Issuer struct {
	secret []byte
	maxTTL time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, maxTTL time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Issue mints a token for the given blob. Requested TTLs are clamped to
// the issuer's maximum; a non-positive TTL gets the maximum.
func (i *Issuer) Issue(container, blob, permissions string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 || ttl > i.maxTTL {
		ttl = i.maxTTL
	}

	grant := Grant{
		Container:   container,
		Blob:        blob,
		Permissions: permissions,
		ExpiresAt:   i.now().UTC().Add(ttl).Truncate(time.Second),
	}

	payload, err := json.Marshal(grant)
	if err != nil {
		return "", time.Time{}, err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + i.sign(encoded), grant.ExpiresAt, nil
}

// Verify checks the signature and expiry and returns the decoded grant.
func (i *Issuer) Verify(token string) (*Grant, error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return nil, ErrMalformed
	}

	if !hmac.Equal([]byte(i.sign(encoded)), []byte(signature)) {
		return nil, ErrBadSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformed
	}

	var grant Grant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, ErrMalformed
	}

	if i.now().After(grant.ExpiresAt) {
		return nil, ErrExpired
	}

	return &grant, nil
}

func (i *Issuer) sign(encoded string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
