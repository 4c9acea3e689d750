// Package file provides the TOML file implementation of driven.ConfigStore.
//
// Values are read from ~/.wkyt/config.toml and may be overridden by
// environment variables named WKYT_<KEY>, where dots in the key become
// underscores: google.client_secret is WKYT_GOOGLE_CLIENT_SECRET.
package file
