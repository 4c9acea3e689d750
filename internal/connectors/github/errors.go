package github

import (
	"errors"
	"net"
	"net/http"

	gh "github.com/google/go-github/v80/github"

	"github.com/wkyt-app/wkyt/internal/connectors/retry"
)

// GitHub-specific errors.
var (
	// ErrRepoNotFound indicates the repository was not found or is not accessible.
	ErrRepoNotFound = errors.New("github: repository not found")

	// ErrInvalidPageToken indicates a page token that is not a page number.
	ErrInvalidPageToken = errors.New("github: invalid page token")
)

func statusCode(err error) int {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		return apiErr.Response.StatusCode
	}
	return 0
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRepoNotFound) || statusCode(err) == http.StatusNotFound
}

// IsRateLimited checks if the error indicates primary or secondary rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	return errors.As(err, &rateLimitErr) || errors.As(err, &abuseErr) ||
		statusCode(err) == http.StatusTooManyRequests
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	return statusCode(err) == http.StatusUnauthorized
}

// Classify maps a go-github error onto the retry classes.
func Classify(err error) retry.Class {
	switch {
	case IsUnauthorized(err):
		return retry.Unauthorized
	case IsRateLimited(err), statusCode(err) >= http.StatusInternalServerError:
		return retry.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Transient
	}
	return retry.Permanent
}
