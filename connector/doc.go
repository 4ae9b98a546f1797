// Package connector keeps one cached connection to a dKV database and gives
// access to a nested tree of persistent containers stored in it.
//
// A Session owns the cached connection. Session.Connection(true) returns it
// (after a Sync, so changes made elsewhere become visible) or opens and caches
// a new one, Session.Connection(false) always opens a connection the caller
// owns. Session.Invalidate closes the cached connection; the next cached call
// reconnects. Default is a process wide Session for callers that don't manage
// their own.
//
// Every database has a root Tree. Below the key configured as project-key
// (default "pAPI") lives the project root, which Session.Root returns and
// creates on first access. KeyedValue and Session.KeyedTree return the
// container stored under a key of the project root, creating it with a
// factory if the key is missing or holds an empty raw value:
//
//	users, err := connector.Default.KeyedTree("users", true)
//	tags, err := connector.KeyedValue(connector.Default, "tags", connector.NewSet, true)
//
// A Timeout drops the cached connection once a duration has passed since its
// last reset. CachedConnection and CachedConnectionTimeout wrap functions with
// one:
//
//	lookup := connector.CachedConnection(connector.Default, func() ([]string, error) {
//		users, err := connector.Default.KeyedTree("users", true)
//		if err != nil {
//			return nil, err
//		}
//		return users.Keys()
//	})
//
// # Storage
//
// Containers (Tree, Set) are stored as gob encoded records under
// <key-prefix>/obj/<oid> of the configured shard. Writes go through to the
// store immediately, there are no transactions. Connections talk to the store
// through an Opener, by default OpenRPCStore, which uses the rpc client
// packages of this module. Tests and embedded use can serve a store.IStore
// in-process with the loopback transport.
//
// # Configuration
//
// LoadConfig reads the bundled client.yaml, merges the file named by
// $DKVC_CONFIG or ~/.dkvc/client.yaml on top of it and applies DKVC_*
// environment variables (DKVC_PROJECT_KEY, DKVC_CLIENT_TIMEOUT, ...).
package connector
