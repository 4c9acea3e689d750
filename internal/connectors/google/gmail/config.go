package gmail

import "net/http"

// DefaultPageSize is the number of message IDs requested per page.
const DefaultPageSize = 100

// Config holds Gmail adapter configuration.
type Config struct {
	// LabelIDs limits listing to specific label IDs. Empty lists all mail.
	LabelIDs []string
	// Query is an extra Gmail search query.
	Query string
	// PageSize is the page size for list requests.
	PageSize int64
	// IncludeSpamTrash includes spam and trash if true.
	IncludeSpamTrash bool
	// Endpoint overrides the Gmail API base URL.
	Endpoint string
	// Transport is the base HTTP transport.
	Transport http.RoundTripper
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}
