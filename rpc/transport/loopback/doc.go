// Package loopback implements an in-process client transport. Requests are
// serialized exactly like on the wire, then decoded and executed against a
// store.IStore in the calling goroutine. This keeps the full client path
// (rpc/client, serializer, error mapping) in play without a server.
//
// Closing the transport does not close the store, so many transports (one per
// connector handle) can share one store and see each other's writes.
package loopback
