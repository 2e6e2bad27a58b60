package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const keyIterations = 100_000

// DeriveKey 使用 PBKDF2+SHA256 从配置的密钥派生 32 字节 AES key。
func DeriveKey(secret, salt string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(salt), keyIterations, 32, sha256.New)
}

// RandomString 生成指定长度的随机字符串（URL 安全，用于密钥、token 等）。
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}

// Cipher encrypts data at rest with AES-256-GCM. A Cipher built from an
// empty secret passes strings through untouched, which keeps development
// databases readable.
type Cipher struct {
	key []byte
}

// NewCipher derives the key once; derivation is deliberately slow.
func NewCipher(secret, salt string) *Cipher {
	if secret == "" {
		return &Cipher{}
	}
	return &Cipher{key: DeriveKey(secret, salt)}
}

// Enabled reports whether a key is configured.
func (c *Cipher) Enabled() bool {
	return c != nil && len(c.key) > 0
}

// Encrypt returns nonce+ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("encryption key not configured")
	}
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)
	// 前面拼上 nonce，解密时可以拆回来
	return append(nonce, ciphertext...), nil
}

// Decrypt expects the nonce+ciphertext layout produced by Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("encryption key not configured")
	}
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("cipher too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString 把明文加密为 base64 字符串
func (c *Cipher) EncryptString(plain string) (string, error) {
	if plain == "" || !c.Enabled() {
		return plain, nil
	}
	b, err := c.Encrypt([]byte(plain))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecryptString 尝试解密 base64+AES，失败则返回原值
func (c *Cipher) DecryptString(cipherStr string) string {
	if cipherStr == "" || !c.Enabled() {
		return cipherStr
	}
	b, err := base64.StdEncoding.DecodeString(cipherStr)
	if err != nil {
		return cipherStr
	}
	plain, err := c.Decrypt(b)
	if err != nil {
		return cipherStr
	}
	return string(plain)
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}
