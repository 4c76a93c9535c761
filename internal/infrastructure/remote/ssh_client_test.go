package remote

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestCommandResultSuccess(t *testing.T) {
	assert.True(t, CommandResult{ExitCode: 0}.Success())
	assert.False(t, CommandResult{ExitCode: 1}.Success())
	assert.False(t, CommandResult{ExitCode: -1}.Success())
}

func TestParseSignerOpenSSH(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	signer, err := parseSigner(pem.EncodeToMemory(block))
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519", signer.PublicKey().Type())
}

func TestParseSignerPKCS1RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	signer, err := parseSigner(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa", signer.PublicKey().Type())
}

func TestParseSignerPKCS8(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := parseSigner(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519", signer.PublicKey().Type())
}

func TestParseSignerSEC1EC(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	signer, err := parseSigner(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, "ecdsa-sha2-nistp256", signer.PublicKey().Type())
}

func TestParseSignerGarbage(t *testing.T) {
	_, err := parseSigner([]byte("not a key"))
	assert.Error(t, err)
}

func TestClientRequiresCredentials(t *testing.T) {
	client := NewClient(Config{Host: "198.51.100.1", User: "root"}, NewPool(1))

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClientRejectsInvalidPrivateKey(t *testing.T) {
	client := NewClient(Config{
		Host: "198.51.100.1", User: "root", PrivateKey: "garbage",
	}, NewPool(1))

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClientExecuteBeforeConnect(t *testing.T) {
	client := NewClient(Config{Host: "198.51.100.1", User: "root", Password: "pw"}, NewPool(1))

	_, err := client.Execute(context.Background(), "true", 0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientCloseIdempotent(t *testing.T) {
	client := NewClient(Config{Host: "198.51.100.1", User: "root", Password: "pw"}, NewPool(1))

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}
