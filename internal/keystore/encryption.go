// Package keystore encrypts and resolves validator/Flash signing seeds
// at rest, the way the teacher's wallet package encrypts a wallet's HD
// seed — but simplified to a single encrypted seed blob, since
// validator.seed/flash.seed (§6) each name exactly one seed rather than
// a wallet's many accounts.
package keystore

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the length of the Argon2id salt in bytes.
const SaltSize = 32

// headerSize is the length of the fixed-size header preceding the
// XChaCha20-Poly1305 nonce and ciphertext:
// salt(32) | memory(4) | iterations(4) | parallelism(1)
const headerSize = SaltSize + 4 + 4 + 1

// EncryptionParams tunes the Argon2id KDF cost.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns conservative interactive-unlock parameters
// (64 MiB, 3 iterations, 4-way parallelism).
func DefaultParams() EncryptionParams {
	return EncryptionParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

func deriveKey(password string, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

// Encrypt seals data with a password-derived key, producing
// salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext.
func Encrypt(data []byte, password string, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(password, salt, params)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	header := make([]byte, headerSize)
	copy(header, salt)
	binary.LittleEndian.PutUint32(header[SaltSize:], params.Memory)
	binary.LittleEndian.PutUint32(header[SaltSize+4:], params.Iterations)
	header[SaltSize+8] = params.Parallelism

	out := append(header, nonce...)
	out = aead.Seal(out, nonce, data, nil)
	return out, nil
}

// Decrypt reverses Encrypt, recovering the KDF parameters from the
// ciphertext's own header.
func Decrypt(encrypted []byte, password string) ([]byte, error) {
	if len(encrypted) < headerSize {
		return nil, fmt.Errorf("encrypted data too short")
	}

	salt := encrypted[:SaltSize]
	memory := binary.LittleEndian.Uint32(encrypted[SaltSize:])
	iterations := binary.LittleEndian.Uint32(encrypted[SaltSize+4:])
	parallelism := encrypted[SaltSize+8]
	params := EncryptionParams{Memory: memory, Iterations: iterations, Parallelism: parallelism}

	rest := encrypted[headerSize:]
	key := deriveKey(password, salt, params)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("encrypted data too short")
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: wrong password or corrupted data")
	}
	return plain, nil
}
