package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/scrypt"
)

// EncryptOpts is the struct given to Encrypt method
type EncryptOpts struct {
	PlainText  string
	Passphrase string
}

func (o EncryptOpts) validate() error {
	if len(o.PlainText) <= 0 {
		return ErrNullPlainText
	}
	if len(o.Passphrase) <= 0 {
		return ErrNullPassphrase
	}
	return nil
}

// Encrypt encrypts (with AES-256-GCM) a plaintext with the provided
// passphrase. The scrypt salt is appended to the returned ciphertext.
func Encrypt(opts EncryptOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	key, salt, err := deriveKey([]byte(opts.Passphrase), nil)
	if err != nil {
		return "", err
	}

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(opts.PlainText), nil)
	ciphertext = append(ciphertext, salt...)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptOpts is the struct given to Decrypt method
type DecryptOpts struct {
	CypherText string
	Passphrase string
}

func (o DecryptOpts) validate() error {
	if len(o.CypherText) <= 0 {
		return ErrNullCypherText
	}
	data, err := base64.StdEncoding.DecodeString(o.CypherText)
	if err != nil {
		return ErrInvalidCypherText
	}
	if len(data) < 32 {
		return ErrInvalidCypherText
	}
	if len(o.Passphrase) <= 0 {
		return ErrNullPassphrase
	}
	return nil
}

// Decrypt decrypts a cyphertext with the provided passphrase. A wrong
// passphrase or a tampered cyphertext makes the authentication fail and
// ErrDecryptionFailed is returned, never garbage plaintext.
func Decrypt(opts DecryptOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	data, _ := base64.StdEncoding.DecodeString(opts.CypherText)
	salt, data := data[len(data)-32:], data[:len(data)-32]

	key, _, err := deriveKey([]byte(opts.Passphrase), salt)
	if err != nil {
		return "", err
	}

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrDecryptionFailed
	}
	nonce, text := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, text, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// deriveKey derives a 32 byte key from a custom passphrase with scrypt.
// 2^20 is the recommended cost for key-stretching at rest, check the doc
// for other recommended values:
// https://godoc.org/golang.org/x/crypto/scrypt
func deriveKey(passphrase, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, 32)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	key, err := scrypt.Key(passphrase, salt, 1048576, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}
