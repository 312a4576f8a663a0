package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

/* Codec encrypts and decrypts serialized event payloads with
 * AES-256-CBC, PKCS#7 padding, a fixed pre-shared key, and an all-zero
 * IV, base64-encoding the result.
 *
 * The zero IV and static key make the scheme deterministic and weak.
 * It is kept as-is for wire compatibility with already-deployed
 * receivers; changing it breaks every existing client.
 */

const keySize = 32

// ErrMalformed reports a payload that cannot be decrypted: bad base64,
// a ciphertext that is not block-aligned, or a padding mismatch.
// Callers treat it as "this message was not encrypted".
var ErrMalformed = errors.New("malformed ciphertext")

type Codec struct {
	key []byte
}

// New derives the cipher key from the shared passphrase. The passphrase
// bytes are truncated or zero-padded to the AES-256 key size.
func New(passphrase string) *Codec {
	key := make([]byte, keySize)
	copy(key, passphrase)
	return &Codec{key: key}
}

// Encrypt returns the base64 ciphertext of plaintext
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt, returning ErrMalformed for any payload that
// does not decode cleanly under the shared key
func (c *Codec) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64: %v", ErrMalformed, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not block-aligned", ErrMalformed, len(raw))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	out := make([]byte, len(raw))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return plain, nil
}

// pad applies PKCS#7 padding
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips and verifies PKCS#7 padding
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("padding mismatch")
		}
	}
	return data[:len(data)-n], nil
}
