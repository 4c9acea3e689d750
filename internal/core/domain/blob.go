package domain

// Key identifiers select the derived subkey used for a blob.
const (
	// KeyIDCredentials encrypts credential blobs.
	KeyIDCredentials = "credentials/v1"
	// KeyIDRecords encrypts record payloads.
	KeyIDRecords = "records/v1"
)

// EncryptedBlob is authenticated ciphertext as persisted by the stores.
// AuthTag must verify before any plaintext is used.
type EncryptedBlob struct {
	Nonce      []byte
	Ciphertext []byte
	AuthTag    []byte
	KeyID      string
}

// AssociatedData joins the identity parts a blob is bound to.
func AssociatedData(parts ...string) []byte {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	out := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			out = append(out, '|')
		}
		out = append(out, p...)
	}
	return out
}
