package sshkeygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// GenerateEd25519 returns a fresh keypair as PEM private key and
// authorized_keys formatted public key. Ed25519 keys are what the install
// flow hands to SSH profiles when the operator has no key of their own.
func GenerateEd25519() (privatePEM, publicAuthorized string, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key pair: %w", err)
	}

	privBlock, err := ssh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create public key: %w", err)
	}

	return string(pem.EncodeToMemory(privBlock)), string(ssh.MarshalAuthorizedKey(sshPubKey)), nil
}

// WriteKeyPair generates and writes a keypair to disk unless the private
// key already exists.
func WriteKeyPair(privateKeyPath, publicKeyPath string) error {
	if _, err := os.Stat(privateKeyPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(privateKeyPath), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	privPEM, pubAuthorized, err := GenerateEd25519()
	if err != nil {
		return err
	}

	if err := os.WriteFile(privateKeyPath, []byte(privPEM), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(publicKeyPath, []byte(pubAuthorized), 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}
