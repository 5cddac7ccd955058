package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

// ErrDecode 凭据无法解码（被篡改、密钥不符或格式错误）
var ErrDecode = errors.New("凭据解码失败")

// Codec 不透明凭据编解码器
// 将内部记录 ID 加密为对外凭据字符串，外部无法枚举或还原
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// New 创建凭据编解码器，密钥经 SHA-256 归一为 32 字节
func New(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("凭据密钥不能为空")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// Encode 将内部 ID 加密为 URL 安全的凭据字符串
func (c *Codec) Encode(id uint64) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", err
	}
	plain := make([]byte, 8)
	binary.BigEndian.PutUint64(plain, id)
	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode 解码凭据字符串，任何解码失败都返回 ErrDecode
func (c *Codec) Decode(encoded string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return 0, ErrDecode
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) <= nonceSize {
		return 0, ErrDecode
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil || len(plain) != 8 {
		return 0, ErrDecode
	}
	return binary.BigEndian.Uint64(plain), nil
}
