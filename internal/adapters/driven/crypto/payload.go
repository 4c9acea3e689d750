package crypto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// tokenPayload is the plaintext sealed into a stored credential.
type tokenPayload struct {
	AccessToken  []byte    `json:"access_token"`
	RefreshToken []byte    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scopes       []string  `json:"scopes,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SealCredential encrypts the secret parts of cred bound to its account.
// The intermediate plaintext is wiped before returning.
func SealCredential(codec driven.Codec, cred domain.Credential) (domain.EncryptedBlob, error) {
	plaintext, err := json.Marshal(tokenPayload{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Scopes:       cred.Scopes,
		ExpiresAt:    cred.ExpiresAt,
	})
	if err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("marshalling credential: %w", err)
	}
	defer zero(plaintext)

	return codec.Encrypt(plaintext, domain.KeyIDCredentials, CredentialAD(cred.Provider, cred.AccountID))
}

// OpenCredential decrypts a credential blob into cred, whose Provider and
// AccountID must already be set.
func OpenCredential(codec driven.Codec, blob domain.EncryptedBlob, cred *domain.Credential) error {
	plaintext, err := codec.Decrypt(blob, CredentialAD(cred.Provider, cred.AccountID))
	if err != nil {
		return err
	}
	defer zero(plaintext)

	var payload tokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return fmt.Errorf("%w: credential payload: %v", domain.ErrIntegrityFailure, err)
	}

	cred.AccessToken = payload.AccessToken
	cred.RefreshToken = payload.RefreshToken
	cred.TokenType = payload.TokenType
	cred.Scopes = payload.Scopes
	cred.ExpiresAt = payload.ExpiresAt
	return nil
}

// SealRecord encrypts a record payload bound to its identity.
func SealRecord(codec driven.Codec, provider domain.Provider, sourceID string, payload []byte) (domain.EncryptedBlob, error) {
	return codec.Encrypt(payload, domain.KeyIDRecords, RecordAD(provider, sourceID))
}

// OpenRecord decrypts a record payload.
func OpenRecord(codec driven.Codec, provider domain.Provider, sourceID string, blob domain.EncryptedBlob) ([]byte, error) {
	return codec.Decrypt(blob, RecordAD(provider, sourceID))
}

// CredentialAD is the associated data of a credential blob.
func CredentialAD(provider domain.Provider, accountID string) []byte {
	return domain.AssociatedData("credential", string(provider), accountID)
}

// RecordAD is the associated data of a record payload blob.
func RecordAD(provider domain.Provider, sourceID string) []byte {
	return domain.AssociatedData("record", string(provider), sourceID)
}
