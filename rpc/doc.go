// Package rpc is the client side of the dKV remote procedure call framework.
// The connector package wraps it; nothing in here knows about connection
// caching or the container tree stored on top of the key-value store.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, client configuration and logging.
//
//   - transport: Network communication abstractions with pluggable client
//     implementations (TCP, Unix sockets, HTTP) and an in-process loopback.
//
//   - serializer: Message serialization (JSON, GOB).
//
//   - client: The RPC implementation of store.IStore.
package rpc
