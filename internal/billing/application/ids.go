package application

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomIDGenerator mints random hex identifiers.
type RandomIDGenerator struct{}

// NewID returns a 32-character random identifier.
func (RandomIDGenerator) NewID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return hex.EncodeToString(buf[:])
	}
	return hex.EncodeToString(buf[:])
}
