// Package auth owns the Google credential lifecycle for the service.
//
// The Manager is the only entry point request handlers use: EnsureClient
// returns a per-user bundle of Gmail, Calendar and Tasks clients whose
// access token is guaranteed to be at least five minutes from expiry.
// Everything else in the package exists to make that guarantee cheap:
//
//   - SnapshotCache keeps recently read credentials in memory under a short
//     TTL, so hot users do not hit the store on every request.
//   - Pool keeps constructed service clients alive between requests in an
//     LRU bounded at DefaultPoolSize, reseeding their token source in place
//     when credentials change so existing handles keep working.
//   - notifyingTokenSource reports tokens the provider SDK minted on its
//     own mid-call, so they are persisted exactly like explicit refreshes.
//
// The store is the system of record. Cache and pool are expendable caches
// of it; dropping either only costs a store read or a client rebuild.
//
// # Refresh-token preservation
//
// Google returns a refresh token once, at first consent. Every write path
// in this package therefore re-reads the stored refresh token immediately
// before writing and treats an empty refresh token in a response as "no
// change". Only Disconnect removes a refresh token.
//
// # Usage
//
//	manager, err := auth.NewManager(ctx, auth.ManagerConfig{
//	    Store: users,
//	    OAuth: google.OAuthConfig(cfg),
//	})
//	if err != nil {
//	    return err
//	}
//
//	client, err := manager.EnsureClient(ctx, userID)
//	if err != nil {
//	    return err // apperrors tells the HTTP layer what to do
//	}
//	lists, err := client.Tasks.ListTaskLists(ctx, 0)
package auth
