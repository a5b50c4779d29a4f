// Package gmail provides a per-user client for the Gmail API.
//
// This package wraps the two Gmail operations the dashboard exposes:
//   - Listing message references by search query, label and page token
//   - Sending an email (RFC 2822 message, base64url-encoded raw payload,
//     RFC 2047-encoded subject for non-ASCII characters)
//
// Each Client is bound to one user and is built from an HTTP client that
// already carries that user's OAuth2 token. Every method issues a single
// remote call with a bounded timeout and reports failures as
// apperrors.ProviderCallFailed, tagged with the operation name and user.
package gmail
