package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// GenerateEd25519Key generates a new Ed25519 private key.
// Returns the private key in PEM format (PKCS8).
func GenerateEd25519Key() ([]byte, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate Ed25519 key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateKeyBytes,
	}

	return pem.EncodeToMemory(privateKeyPEM), nil
}

// ParseEd25519Key parses a PKCS8 PEM block into an Ed25519 private key.
func ParseEd25519Key(pemData []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}

	keyInterface, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to parse PKCS8 key: %w", err)
	}

	key, ok := keyInterface.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("cryptox: not an Ed25519 private key")
	}
	return key, nil
}

// LoadOrCreateEd25519Key reads an Ed25519 signing key from path, generating
// and persisting a fresh one when the file does not exist. If path is empty
// an ephemeral key is returned; tokens then stop verifying across restarts.
func LoadOrCreateEd25519Key(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		pemData, err := GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		return ParseEd25519Key(pemData)
	}

	if data, err := os.ReadFile(path); err == nil {
		return ParseEd25519Key(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cryptox: failed to read signing key: %w", err)
	}

	pemData, err := GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pemData, 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: failed to persist signing key: %w", err)
	}
	return ParseEd25519Key(pemData)
}
