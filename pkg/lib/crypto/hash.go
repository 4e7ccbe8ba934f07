package crypto

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // overlay 名称哈希按协议使用 SHA-1
	"encoding/binary"

	sha256 "github.com/minio/sha256-simd"
)

var randReader = rand.Reader

// HashFunc 哈希函数
type HashFunc func(data []byte) []byte

// SHA256 计算 SHA-256 摘要
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SHA1 计算 SHA-1 摘要
func SHA1(data []byte) []byte {
	sum := sha1.Sum(data) //nolint:gosec
	return sum[:]
}

// HashByName 按算法名称返回哈希函数
func HashByName(name string) (HashFunc, error) {
	switch name {
	case "sha256", "SHA-256", "sha-256":
		return SHA256, nil
	case "sha1", "SHA-1", "sha-1":
		return SHA1, nil
	default:
		return nil, ErrUnknownHash
	}
}

// Truncated 返回截断到 n 字节的哈希函数
func Truncated(h HashFunc, n int) HashFunc {
	return func(data []byte) []byte {
		sum := h(data)
		if n > 0 && n < len(sum) {
			return sum[:n]
		}
		return sum
	}
}

// OverlayNameHash overlay 名称哈希：SHA-1 摘要的低 32 位
func OverlayNameHash(name string) uint32 {
	sum := SHA1([]byte(name))
	return binary.BigEndian.Uint32(sum[len(sum)-4:])
}
