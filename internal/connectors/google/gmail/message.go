package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// messageToRaw converts a message fetched with Format("raw").
// msg.Raw holds the base64url-encoded RFC 2822 message.
func messageToRaw(msg *gmailapi.Message) (*domain.RawRecord, error) {
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(msg.Raw, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: message %s: decode raw: %w", domain.ErrMalformedResponse, msg.Id, err)
	}

	rec := &domain.RawRecord{
		SourceID: msg.Id,
		Kind:     domain.RecordKindMessage,
		Payload:  payload,
	}
	if msg.InternalDate > 0 {
		rec.ModifiedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	return rec, nil
}

// buildQuery narrows the listing to mail newer than the last completed pass.
func buildQuery(base string, since time.Time) string {
	if since.IsZero() {
		return base
	}
	return strings.TrimSpace(fmt.Sprintf("%s after:%d", base, since.Unix()))
}
