// Package github reads the repositories of a GitHub account into the vault.
//
// Every repository the authenticated user can access (owned, collaborator
// and organisation member) becomes one record whose payload is the
// repository JSON returned by the REST API.
//
// # Transport
//
// Requests pass through three layers before reaching the network:
//
//  1. go-github-ratelimit sleeps through secondary rate limits
//  2. httpcache revalidates unchanged responses with ETags, which GitHub
//     does not count against the primary quota
//  3. oauth2.Transport attaches the account's current access token
//
// A proactive token bucket keeps the request rate under 5,000 per hour and
// the X-RateLimit headers pause requests when the quota runs low.
//
// # Paging
//
// The page token is the decimal REST page number. Repositories are listed
// most recently updated first, so an incremental pass stops at the first
// repository that has not changed since the previous pass.
package github
