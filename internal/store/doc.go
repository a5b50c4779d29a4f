// Package store persists user accounts and their Google credentials in
// MongoDB.
//
// Accounts live in the users collection, keyed by an opaque UUID minted at
// first consent. The Google credential is embedded in the account document;
// its token values are projected away on default reads, so the rest of the
// codebase only ever sees them through the auth.CredentialSource methods or
// the explicit FindByIDWithTokens.
//
// The refresh-token merge rule is enforced at this boundary as well as in
// the auth manager: a write that carries no refresh token keeps whatever is
// stored, and a write that races a disconnect loses.
package store
