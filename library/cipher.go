package library

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key material compatible with user files written by earlier releases.
// A fixed IV means equal plaintexts produce equal ciphertexts; configure a
// passphrase to at least move off the shared key.
const (
	DefaultKey = "12345678901234561234567890123456"
	DefaultIV  = "1234567890123456"
)

const pbkdf2Iterations = 100_000

// Cipher encrypts text blobs with AES-CBC under a fixed key and IV. Output
// is base64 so it can live in a text file.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher validates key (16, 24 or 32 bytes) and iv (one AES block).
func NewCipher(key, iv []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("new cipher: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &Cipher{block: block, iv: bytes.Clone(iv)}, nil
}

// DefaultCipher returns the cipher built from DefaultKey and DefaultIV.
func DefaultCipher() *Cipher {
	c, err := NewCipher([]byte(DefaultKey), []byte(DefaultIV))
	if err != nil {
		panic(err)
	}
	return c
}

// DeriveKey stretches a passphrase into a 32-byte AES-256 key.
func DeriveKey(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), pbkdf2Iterations, 32, sha256.New)
}

// Encrypt pads plaintext to a block boundary and returns base64 ciphertext.
func (c *Cipher) Encrypt(plaintext string) string {
	data := pad([]byte(plaintext))
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt. Corrupt input yields an error wrapping
// ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecryption, len(raw), aes.BlockSize)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// padLen is always in [1, BlockSize]; aligned input gets a full block.
func padLen(n int) int { return aes.BlockSize - n%aes.BlockSize }

func pad(data []byte) []byte {
	n := padLen(len(data))
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryption)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding length %d", ErrDecryption, n)
	}
	return data[:len(data)-n], nil
}
