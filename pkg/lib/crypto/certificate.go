package crypto

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// reloadURIScheme 证书中 Node-ID URI 的协议名
const reloadURIScheme = "reload"

// Certificate 已解析的节点证书
type Certificate struct {
	// Raw DER 编码
	Raw []byte

	// PublicKey 证书公钥
	PublicKey PublicKey

	// NodeIDs 证书绑定的 Node-ID
	NodeIDs [][]byte

	// Overlay 证书所属 overlay 名称
	Overlay string

	// Username 证书绑定的用户名（rfc822Name）
	Username string

	// NotAfter 过期时间
	NotAfter time.Time
}

// CertificateTemplate 自签名证书参数
type CertificateTemplate struct {
	Overlay  string
	NodeIDs  [][]byte
	Username string
	Validity time.Duration
}

// HasNodeID 证书是否绑定了指定 Node-ID
func (c *Certificate) HasNodeID(id []byte) bool {
	for _, n := range c.NodeIDs {
		if string(n) == string(id) {
			return true
		}
	}
	return false
}

// ParseCertificate 解析 DER 编码的 X.509 证书
func ParseCertificate(der []byte) (*Certificate, error) {
	xc, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	pub, err := publicKeyFromStd(xc.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	c := &Certificate{
		Raw:       append([]byte(nil), der...),
		PublicKey: pub,
		NotAfter:  xc.NotAfter,
	}
	for _, u := range xc.URIs {
		if u.Scheme != reloadURIScheme {
			continue
		}
		idHex, overlay, _ := strings.Cut(u.Opaque, "@")
		id, err := hex.DecodeString(idHex)
		if err != nil || len(id) == 0 {
			return nil, fmt.Errorf("%w: bad node id uri %q", ErrInvalidCertificate, u.String())
		}
		c.NodeIDs = append(c.NodeIDs, id)
		if c.Overlay == "" {
			c.Overlay = overlay
		}
	}
	if len(xc.EmailAddresses) > 0 {
		c.Username = xc.EmailAddresses[0]
	}
	return c, nil
}

// CheckSelfSignature 以证书自身公钥校验其签名
func (c *Certificate) CheckSelfSignature() error {
	xc, err := x509.ParseCertificate(c.Raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	if err := xc.CheckSignature(xc.SignatureAlgorithm, xc.RawTBSCertificate, xc.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCertificateSignature, err)
	}
	return nil
}

// NewSelfSignedCertificate 签发自签名证书
func NewSelfSignedCertificate(priv PrivateKey, tmpl CertificateTemplate) (*Certificate, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	validity := tmpl.Validity
	if validity <= 0 {
		validity = 365 * 24 * time.Hour
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	xt := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: tmpl.Username},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	for _, id := range tmpl.NodeIDs {
		xt.URIs = append(xt.URIs, &url.URL{
			Scheme: reloadURIScheme,
			Opaque: hex.EncodeToString(id) + "@" + tmpl.Overlay,
		})
	}
	if tmpl.Username != "" {
		xt.EmailAddresses = []string{tmpl.Username}
	}

	signer := priv.stdSigner()
	der, err := x509.CreateCertificate(randReader, xt, xt, signer.Public(), signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return ParseCertificate(der)
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return randInt(limit)
}
