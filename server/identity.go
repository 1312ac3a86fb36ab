package server

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength   = 6
)

// generateID draws one identifier uniformly from the 36-symbol alphabet.
// Uniqueness against live sessions is the registry's job.
func generateID() (string, error) {
	max := big.NewInt(int64(len(idAlphabet)))
	id := make([]byte, idLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		id[i] = idAlphabet[n.Int64()]
	}
	return string(id), nil
}

// normalizeID maps sloppy client input onto the canonical identifier
// form: trimmed, uppercase.
func normalizeID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// validID reports whether s is exactly six uppercase alphanumerics.
func validID(s string) bool {
	if len(s) != idLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
