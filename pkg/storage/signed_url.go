package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for a well formed token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner creates and validates download tokens of the form
// base64(jobID|expiry|path).base64(hmac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate returns a token referencing the job and stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("jobID and relPath required")
	}
	if strings.Contains(jobID, "|") {
		return "", time.Time{}, fmt.Errorf("jobID must not contain '|'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, "|")
	enc := base64.RawURLEncoding
	token := enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(s.sign(payload))
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata. With
// allowExpired the expiry check is skipped.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	encPayload, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	enc := base64.RawURLEncoding
	rawPayload, err := enc.DecodeString(encPayload)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	sig, err := enc.DecodeString(encSig)
	if err != nil || !hmac.Equal(sig, s.sign(string(rawPayload))) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	parts := strings.SplitN(string(rawPayload), "|", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}
