package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes yields an 86-character verifier, inside RFC 7636's 43-128.
	verifierBytes = 64
	stateBytes    = 32
)

// pkcePair is a PKCE code verifier and its S256 challenge.
type pkcePair struct {
	verifier  string
	challenge string
}

// newPKCEPair generates a random verifier and derives its challenge.
func newPKCEPair() (pkcePair, error) {
	verifier, err := randomToken(verifierBytes)
	if err != nil {
		return pkcePair{}, fmt.Errorf("generating code verifier: %w", err)
	}
	return pkcePair{verifier: verifier, challenge: s256Challenge(verifier)}, nil
}

// s256Challenge is BASE64URL(SHA256(verifier)) without padding.
func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// newState returns an unguessable OAuth state value.
func newState() (string, error) {
	state, err := randomToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return state, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
