package identity

import (
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

func newTestIdentity(t *testing.T, username string) *Identity {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	nodeID, err := DeriveNodeID(priv.GetPublic(), 16)
	require.NoError(t, err)
	id, err := New(priv, nodeID, "test.overlay", username, time.Hour)
	require.NoError(t, err)
	return id
}

// TestLoad 测试按配置生成身份
func TestLoad(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.KeyFile = filepath.Join(t.TempDir(), "node.key")
	cfg.Identity.Username = "alice@example.org"

	id, err := Load(cfg.Identity, cfg.Overlay)
	require.NoError(t, err)
	assert.Len(t, id.NodeID, cfg.Overlay.NodeIDLength)
	assert.True(t, id.Certificate.HasNodeID(id.NodeID))
	assert.Equal(t, "alice@example.org", id.Certificate.Username)

	// 同一密钥文件派生相同 Node-ID
	again, err := Load(cfg.Identity, cfg.Overlay)
	require.NoError(t, err)
	assert.True(t, id.NodeID.Equal(again.NodeID))
}

// TestLoad_ExplicitNodeID 测试配置的 Node-ID 必须与密钥派生值一致
func TestLoad_ExplicitNodeID(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.KeyFile = filepath.Join(t.TempDir(), "node.key")

	derived, err := Load(cfg.Identity, cfg.Overlay)
	require.NoError(t, err)

	cfg.Identity.NodeID = hex.EncodeToString(derived.NodeID)
	id, err := Load(cfg.Identity, cfg.Overlay)
	require.NoError(t, err)
	assert.True(t, derived.NodeID.Equal(id.NodeID))

	cfg.Identity.NodeID = "00112233445566778899aabbccddeeff"
	_, err = Load(cfg.Identity, cfg.Overlay)
	assert.ErrorIs(t, err, ErrNodeIDNotDerived)

	cfg.Identity.NodeID = "0011"
	_, err = Load(cfg.Identity, cfg.Overlay)
	assert.ErrorIs(t, err, ErrNodeIDLength)
}

// TestKeystore_SignVerify 测试本地签名与证书表校验
func TestKeystore_SignVerify(t *testing.T) {
	ks, err := NewKeystore(newTestIdentity(t, ""), message.HashSHA256, nil)
	require.NoError(t, err)

	data := []byte("payload")
	sig, err := ks.Sign(data)
	require.NoError(t, err)
	assert.Equal(t, message.SignatureEd25519, sig.SigAlg)
	assert.Equal(t, message.IdentityCertHashNodeID, sig.Identity.Type)

	require.NoError(t, ks.Verify(data, sig))
	assert.ErrorIs(t, ks.Verify([]byte("other"), sig), ErrInvalidSignature)
}

// TestKeystore_Lookup 测试按不同身份类型查找证书
func TestKeystore_Lookup(t *testing.T) {
	local := newTestIdentity(t, "")
	peer := newTestIdentity(t, "bob@example.org")
	ks, err := NewKeystore(local, message.HashSHA1, nil)
	require.NoError(t, err)

	nid, err := NodeIdentity(message.HashSHA256, peer.Certificate, peer.NodeID)
	require.NoError(t, err)
	_, err = ks.GetCertificate(nid)
	assert.ErrorIs(t, err, ErrUnknownSigner)

	require.NoError(t, ks.AddCertificate(peer.Certificate))
	cert, err := ks.GetCertificate(nid)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.org", cert.Username)

	cid, err := CertIdentity(message.HashSHA1, peer.Certificate)
	require.NoError(t, err)
	_, err = ks.GetCertificate(cid)
	assert.NoError(t, err)

	_, err = ks.GetCertificate(message.NoneIdentity())
	assert.ErrorIs(t, err, ErrNoneIdentity)
}

// TestKeystore_RejectForged 测试拒绝冒用他人 Node-ID 或签名无效的证书
func TestKeystore_RejectForged(t *testing.T) {
	victim := newTestIdentity(t, "")
	ks, err := NewKeystore(newTestIdentity(t, ""), message.HashSHA1, nil)
	require.NoError(t, err)

	// 攻击者用自己的密钥签发声明 victim Node-ID 的证书
	attacker, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	forged, err := New(attacker, victim.NodeID, "test.overlay", "", time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, ks.AddCertificate(forged.Certificate), ErrNodeIDNotDerived)

	nid, err := NodeIdentity(message.HashSHA1, forged.Certificate, victim.NodeID)
	require.NoError(t, err)
	_, err = ks.GetCertificate(nid)
	assert.ErrorIs(t, err, ErrUnknownSigner)

	// 长度不符
	short, err := New(attacker, victim.NodeID[:4], "test.overlay", "", time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, ks.AddCertificate(short.Certificate), ErrNodeIDLength)

	// 自签名被篡改
	raw := append([]byte(nil), victim.Certificate.Raw...)
	raw[len(raw)-1] ^= 0xff
	tampered, err := crypto.ParseCertificate(raw)
	require.NoError(t, err)
	assert.ErrorIs(t, ks.AddCertificate(tampered), crypto.ErrBadCertificateSignature)

	require.NoError(t, ks.AddCertificate(victim.Certificate))
}

// TestKeystore_Expired 测试证书过期
func TestKeystore_Expired(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	ks, err := NewKeystore(newTestIdentity(t, ""), message.HashSHA256, mock)
	require.NoError(t, err)

	_, err = ks.GetCertificate(ks.LocalIdentity())
	require.NoError(t, err)

	mock.Add(2 * time.Hour)
	_, err = ks.GetCertificate(ks.LocalIdentity())
	assert.ErrorIs(t, err, ErrCertificateExpired)
}

// TestIdentityHash 测试身份哈希包含 Node-ID
func TestIdentityHash(t *testing.T) {
	id := newTestIdentity(t, "")

	withNode, err := IdentityHash(message.HashSHA256, id.Certificate, id.NodeID)
	require.NoError(t, err)
	certOnly, err := IdentityHash(message.HashSHA256, id.Certificate, nil)
	require.NoError(t, err)
	assert.Len(t, withNode, 32)
	assert.NotEqual(t, withNode, certOnly)

	sha1Sum, err := IdentityHash(message.HashSHA1, id.Certificate, id.NodeID)
	require.NoError(t, err)
	assert.Len(t, sha1Sum, 20)

	_, err = IdentityHash(message.HashMD5, id.Certificate, nil)
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

// TestParseHashAlgorithm 测试哈希算法名称
func TestParseHashAlgorithm(t *testing.T) {
	alg, err := ParseHashAlgorithm("sha256")
	require.NoError(t, err)
	assert.Equal(t, message.HashSHA256, alg)

	_, err = ParseHashAlgorithm("md5")
	assert.Error(t, err)
}

// TestModule 测试模块提供证书表与本节点标识
func TestModule(t *testing.T) {
	var ks interfaces.Keystore
	var local message.NodeID
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&ks),
		fx.Invoke(func(p struct {
			fx.In
			LocalID message.NodeID `name:"local_node_id"`
		}) {
			local = p.LocalID
		}),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Len(t, local, 16)
	assert.True(t, ks.LocalCertificate().HasNodeID(local))
}
