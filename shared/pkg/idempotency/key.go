// Package idempotency replays the stored response of a command that a shop
// floor terminal retries with the same Idempotency-Key header.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/mes-platform/production/shared/pkg/errors"
)

// HeaderIdempotencyKey carries the client-chosen key
const HeaderIdempotencyKey = "Idempotency-Key"

// MaxKeyLength bounds accepted keys
const MaxKeyLength = 128

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Entry is one remembered command. While LockToken is set and CompletedAt is
// nil the command is still running.
type Entry struct {
	ID          string    `bson:"_id"`
	Key         string    `bson:"key"`
	Service     string    `bson:"service"`
	Method      string    `bson:"method"`
	Path        string    `bson:"path"`
	Fingerprint string    `bson:"fingerprint"`
	LockToken   string    `bson:"lockToken,omitempty"`
	LockedAt    time.Time `bson:"lockedAt"`

	StatusCode  int        `bson:"statusCode,omitempty"`
	Body        []byte     `bson:"body,omitempty"`
	ContentType string     `bson:"contentType,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// Completed reports whether a response has been stored
func (e *Entry) Completed() bool {
	return e.CompletedAt != nil
}

// Stale reports whether a running entry has held its lock longer than timeout
func (e *Entry) Stale(now time.Time, timeout time.Duration) bool {
	return !e.Completed() && now.Sub(e.LockedAt) >= timeout
}

// EntryID scopes a key to its service
func EntryID(service, key string) string {
	return service + "/" + key
}

// ValidateKey checks length and alphabet
func ValidateKey(key string) error {
	switch {
	case key == "":
		return errors.ErrValidation("idempotency key is empty")
	case len(key) > MaxKeyLength:
		return errors.ErrValidation("idempotency key is too long").WithDetail("maxLength", "128")
	case !keyPattern.MatchString(key):
		return errors.ErrValidation("idempotency key may only contain letters, digits, '-' and '_'")
	}
	return nil
}

// Fingerprint identifies the request a key was first used with. The operator
// is part of it so two operators cannot share a key by accident.
func Fingerprint(method, path, operator string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{strings.ToUpper(method), path, operator} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
