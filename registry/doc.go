// Package registry talks to, and implements, a central metadata authority over HTTP.
//
// Client implements metadata.Updater and metadata.Loader: ProcessPendingUpdates pushes
// new fields to the authority and LoadFrom seeds a Manager with everything the
// authority already knows.
//
// AuthorityServer is the other side. It keeps its own metadata.Manager and rejects
// pushes that would allocate an id or name twice with 409 Conflict.
//
// Error handling:
//
// Conflicts and other client errors are wrapped with metadata.Permanent, so retry
// wrappers stop on them. Transport failures and 5xx responses match ErrUnavailable
// and are retryable:
//
//	err := manager.ProcessPendingUpdates(ctx, client)
//	if errors.Is(err, registry.ErrAuthorityConflict) {
//	    // the authority disagrees with the local allocation
//	}
//
// Authentication:
//
// With TokenSecret set, the client signs a short-lived HS256 token per request and
// the server verifies it. Otherwise basic auth is used when a username is configured.
package registry
