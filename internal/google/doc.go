// Package google builds the OAuth2 configuration shared by the login flow
// and the token lifecycle, and resolves the userinfo profile used to link
// a Google account to a dashboard user.
//
// The package holds no state: client credentials come from configuration,
// and tokens live in the user store. See the auth package for refresh,
// caching, and client pooling.
package google
