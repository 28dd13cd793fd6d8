package id

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-8][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
)

// New returns 32 lowercase hex characters (128 random bits, no separators).
func New() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Valid accepts a 32-char hex id or a canonical UUID, case-insensitively.
func Valid(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return reHex32.MatchString(s) || reUUID.MatchString(s)
}
