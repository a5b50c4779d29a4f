// Package session issues and verifies the browser session cookie. Sessions
// are stateless: an HMAC-signed payload in the cookie is the whole session,
// so no server-side store is consulted on reads.
//
// A session only proves who the browser is. Whether that user can reach
// Google is a separate question answered by the credential store; logging
// out clears the cookie but leaves the stored Google credential intact.
package session
