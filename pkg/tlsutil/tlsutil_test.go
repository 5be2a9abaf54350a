package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	cfg, err := LoadClientConfig(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.NotNil(t, cfg.RootCAs)
}

func TestLoadClientConfig_MinVersion13(t *testing.T) {
	cfg, err := LoadClientConfig(ClientConfig{MinVersion: "1.3"})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestLoadClientConfig_ExtraCA(t *testing.T) {
	tmpDir := t.TempDir()
	caPEM := generateTestCert(t)
	caFile := filepath.Join(tmpDir, "ca.pem")
	require.NoError(t, os.WriteFile(caFile, caPEM, 0644))

	cfg, err := LoadClientConfig(ClientConfig{CAFiles: []string{caFile}})
	require.NoError(t, err)
	assert.NotNil(t, cfg.RootCAs)
}

func TestLoadClientConfig_BadCAFile(t *testing.T) {
	tmpDir := t.TempDir()
	caFile := filepath.Join(tmpDir, "bogus.pem")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0644))

	_, err := LoadClientConfig(ClientConfig{CAFiles: []string{caFile}})
	assert.Error(t, err)
}

func TestLoadClientConfig_MissingCAFile(t *testing.T) {
	_, err := LoadClientConfig(ClientConfig{CAFiles: []string{"/nonexistent/ca.pem"}})
	assert.Error(t, err)
}

// generateTestCert creates a self-signed certificate for tests.
func generateTestCert(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-ca"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageCertSign,
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
