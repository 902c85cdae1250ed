package encryption

import (
	"fmt"

	"rewind-go/internal/config"
	"rewind-go/internal/rewind"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor, which stores payloads in plaintext.
// For "age" the key pair is generated on first use.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (rewind.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		e := NewAgeEncryptor(cfg)
		if err := e.Setup(); err != nil {
			return nil, fmt.Errorf("setting up age keys: %w", err)
		}
		return e, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
