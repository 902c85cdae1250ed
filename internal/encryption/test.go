package encryption

import (
	"bytes"
	"fmt"
	"io"

	"rewind-go/internal/rewind"
)

// testHeader is prepended by TestEncryptor so stored payloads differ from
// plaintext while staying deterministic and reversible.
var testHeader = []byte("RWENC\x00\x00\x00")

// TestEncryptor is a deterministic encryptor for tests. It prepends a fixed
// 8-byte header on Encrypt and strips it on Decrypt.
type TestEncryptor struct{}

var _ rewind.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Encrypt(src io.Reader, dst io.Writer) error {
	if _, err := dst.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Decrypt(src io.Reader, dst io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
