// Package storetesting provides a standardised test suite for implementations
// of the store.IStore interface.
//
// The suite checks the interface contract every backend of the connector
// relies on: copy semantics of Get, SetEIfUnset never overwriting, expired keys
// staying visible to Has and ttls counted in write operations.
//
// Example usage:
//
//	func Test(t *testing.T) {
//		storetesting.RunStoreTests(t, "MemoryStore", func() store.IStore {
//			return memstore.NewMemoryStore()
//		})
//	}
package storetesting
