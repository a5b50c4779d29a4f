// Package apperrors defines the failure taxonomy shared by the token
// lifecycle manager, the provider call wrappers, and the HTTP layer.
//
// The auth-related types map onto what the frontend must do next:
// not_authenticated and reauth_required both mean "send the user through
// consent", refresh_failed means "a retry after a fresh login may work",
// and provider_call_failed carries the remote API's own failure detail.
package apperrors
