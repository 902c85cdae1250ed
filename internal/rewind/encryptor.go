package rewind

import "io"

// Encryptor encrypts backup payloads at rest. A nil Encryptor stores plaintext.
type Encryptor interface {
	// Encrypt reads plaintext from src and writes ciphertext to dst.
	Encrypt(src io.Reader, dst io.Writer) error

	// Decrypt reads ciphertext from src and writes plaintext to dst.
	Decrypt(src io.Reader, dst io.Writer) error
}
