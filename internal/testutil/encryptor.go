package testutil

import (
	"rewind-go/internal/encryption"
	"rewind-go/internal/rewind"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() rewind.Encryptor {
	return encryption.NewTestEncryptor()
}
