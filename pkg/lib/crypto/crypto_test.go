package crypto

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignVerify 测试各密钥类型签名验签
func TestSignVerify(t *testing.T) {
	for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeECDSA, KeyTypeRSA} {
		t.Run(kt.String(), func(t *testing.T) {
			priv, pub, err := GenerateKeyPair(kt)
			require.NoError(t, err)
			assert.Equal(t, kt, priv.Type())
			assert.True(t, pub.Equals(priv.GetPublic()))

			data := []byte("resource|kind|time|value")
			sig, err := priv.Sign(data)
			require.NoError(t, err)

			ok, err := pub.Verify(data, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = pub.Verify([]byte("tampered"), sig)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// TestParseKeyType 测试密钥类型解析
func TestParseKeyType(t *testing.T) {
	kt, err := ParseKeyType("Ed25519")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeEd25519, kt)

	_, err = ParseKeyType("dsa")
	assert.ErrorIs(t, err, ErrBadKeyType)
}

// TestHash 测试哈希函数
func TestHash(t *testing.T) {
	// SHA-256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(SHA256([]byte("abc"))))
	// SHA-1("abc")
	assert.Equal(t,
		"a9993e364706816aba3e25717850c26c9cd0d89d",
		hex.EncodeToString(SHA1([]byte("abc"))))

	h, err := HashByName("sha256")
	require.NoError(t, err)
	assert.Len(t, Truncated(h, 16)([]byte("x")), 16)

	_, err = HashByName("md4")
	assert.ErrorIs(t, err, ErrUnknownHash)

	assert.Equal(t, uint32(0x9cd0d89d), OverlayNameHash("abc"))
}

// TestCertificate 测试证书签发与解析
func TestCertificate(t *testing.T) {
	priv, pub, err := GenerateKeyPair(KeyTypeEd25519)
	require.NoError(t, err)

	nodeA := []byte{0x01, 0x02, 0x03, 0x04}
	nodeB := []byte{0x0a, 0x0b, 0x0c, 0x0d}
	cert, err := NewSelfSignedCertificate(priv, CertificateTemplate{
		Overlay:  "example.org",
		NodeIDs:  [][]byte{nodeA, nodeB},
		Username: "alice@example.org",
	})
	require.NoError(t, err)

	assert.True(t, cert.PublicKey.Equals(pub))
	assert.Equal(t, [][]byte{nodeA, nodeB}, cert.NodeIDs)
	assert.Equal(t, "example.org", cert.Overlay)
	assert.Equal(t, "alice@example.org", cert.Username)
	assert.True(t, cert.HasNodeID(nodeB))
	assert.False(t, cert.HasNodeID([]byte{9}))

	parsed, err := ParseCertificate(cert.Raw)
	require.NoError(t, err)
	assert.Equal(t, cert.NodeIDs, parsed.NodeIDs)

	_, err = ParseCertificate([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}

// TestCertificate_SelfSignature 测试自签名校验能发现被篡改的证书
func TestCertificate_SelfSignature(t *testing.T) {
	for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeECDSA} {
		priv, _, err := GenerateKeyPair(kt)
		require.NoError(t, err)
		cert, err := NewSelfSignedCertificate(priv, CertificateTemplate{
			Overlay: "o",
			NodeIDs: [][]byte{{1, 2}},
		})
		require.NoError(t, err)
		require.NoError(t, cert.CheckSelfSignature(), kt.String())

		// 签名位于 DER 末尾，翻转最后一字节仍可解析
		tampered := append([]byte(nil), cert.Raw...)
		tampered[len(tampered)-1] ^= 0xff
		bad, err := ParseCertificate(tampered)
		require.NoError(t, err)
		assert.ErrorIs(t, bad.CheckSelfSignature(), ErrBadCertificateSignature, kt.String())
	}
}

// TestCertificate_ECDSA 测试 ECDSA 证书
func TestCertificate_ECDSA(t *testing.T) {
	priv, _, err := GenerateKeyPair(KeyTypeECDSA)
	require.NoError(t, err)
	cert, err := NewSelfSignedCertificate(priv, CertificateTemplate{
		Overlay: "o",
		NodeIDs: [][]byte{{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, KeyTypeECDSA, cert.PublicKey.Type())
}

// TestKeyFile 测试私钥文件
func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.pem")

	k1, err := LoadOrGenerateKey(path, KeyTypeEd25519)
	require.NoError(t, err)
	k2, err := LoadOrGenerateKey(path, KeyTypeEd25519)
	require.NoError(t, err)
	assert.True(t, k1.Equals(k2))

	_, err = UnmarshalPrivateKeyPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidKeyFile)

	for _, kt := range []KeyType{KeyTypeECDSA, KeyTypeRSA} {
		priv, _, err := GenerateKeyPair(kt)
		require.NoError(t, err)
		data, err := MarshalPrivateKeyPEM(priv)
		require.NoError(t, err)
		back, err := UnmarshalPrivateKeyPEM(data)
		require.NoError(t, err)
		assert.True(t, priv.Equals(back))
	}
}
