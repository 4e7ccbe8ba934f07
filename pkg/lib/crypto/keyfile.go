package crypto

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
)

const pemTypePrivateKey = "PRIVATE KEY"

func randInt(limit *big.Int) (*big.Int, error) {
	return rand.Int(randReader, limit)
}

// MarshalPrivateKeyPEM 以 PKCS#8 PEM 编码私钥
func MarshalPrivateKeyPEM(priv PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv.stdSigner())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
}

// UnmarshalPrivateKeyPEM 解析 PKCS#8 PEM 私钥
func UnmarshalPrivateKeyPEM(data []byte) (PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivateKey {
		return nil, ErrInvalidKeyFile
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	return privateKeyFromStd(key)
}

// LoadOrGenerateKey 从文件加载私钥，文件不存在时生成并保存
func LoadOrGenerateKey(path string, keyType KeyType) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return UnmarshalPrivateKeyPEM(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	priv, _, err := GenerateKeyPair(keyType)
	if err != nil {
		return nil, err
	}
	data, err = MarshalPrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	return priv, nil
}
