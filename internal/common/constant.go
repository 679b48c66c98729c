// Package common contains shared constants and sentinel errors used across
// authkeeper components. Callers should use errors.Is to match error values.
package common

// AuthorizationHeaderName is the HTTP header carrying the access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"
