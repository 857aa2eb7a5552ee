// Package token verifies bearer tokens and turns them into shelf subjects.
//
// Two verification modes are provided on top of a common JWT core:
//
//   - Cognito: RS256 tokens issued by an AWS Cognito user pool, verified
//     against the pool's JWKS which is fetched and refreshed in the
//     background.
//   - HMAC: HS256 tokens whose "kid" header selects a secret from a
//     keybackend.SecretStore. Intended for development and tests, where
//     SignHMAC mints tokens locally.
//
// Every rejection wraps shelf.ErrUnauthorized so the HTTP layer can map it
// to a 401 without inspecting the cause.
package token
