package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure Codec implements the interface.
var _ driven.Codec = (*Codec)(nil)

// Codec seals blobs with XChaCha20-Poly1305 under subkeys of a VaultKey.
type Codec struct {
	key    *VaultKey
	random io.Reader
}

// NewCodec creates a codec backed by key.
func NewCodec(key *VaultKey) *Codec {
	return &Codec{key: key, random: rand.Reader}
}

// Encrypt seals plaintext under the subkey for keyID.
func (c *Codec) Encrypt(plaintext []byte, keyID string, associatedData []byte) (domain.EncryptedBlob, error) {
	if !knownKeyIDs[keyID] {
		return domain.EncryptedBlob{}, fmt.Errorf("%w: unknown key id %q", domain.ErrInvalidInput, keyID)
	}

	sub, err := c.key.derive(keyID)
	if err != nil {
		return domain.EncryptedBlob{}, err
	}
	defer zero(sub)

	aead, err := chacha20poly1305.NewX(sub)
	if err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, associatedData)
	split := len(sealed) - aead.Overhead()

	return domain.EncryptedBlob{
		Nonce:      nonce,
		Ciphertext: sealed[:split:split],
		AuthTag:    sealed[split:],
		KeyID:      keyID,
	}, nil
}

// Decrypt verifies the tag and opens the blob.
// Every failure to authenticate is reported as domain.ErrIntegrityFailure.
func (c *Codec) Decrypt(blob domain.EncryptedBlob, associatedData []byte) ([]byte, error) {
	if len(blob.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce length %d", domain.ErrIntegrityFailure, len(blob.Nonce))
	}
	if len(blob.AuthTag) != chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: bad tag length %d", domain.ErrIntegrityFailure, len(blob.AuthTag))
	}

	sub, err := c.key.derive(blob.KeyID)
	if err != nil {
		return nil, err
	}
	defer zero(sub)

	aead, err := chacha20poly1305.NewX(sub)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+len(blob.AuthTag))
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)

	plaintext, err := aead.Open(nil, blob.Nonce, sealed, associatedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIntegrityFailure, blob.KeyID)
	}
	return plaintext, nil
}
