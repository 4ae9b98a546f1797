// Package store provides the interface every key-value backend of the connector
// implements, together with a structured error type.
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting
//     with a key-value store: plain and expiring writes, a conditional write
//     (SetEIfUnset), reads and Close. Remote stores (rpc/client) and the
//     in-memory store (memstore) share it, so the connector does not care
//     where its records live.
//
//   - Error System: A structured error reporting mechanism using typed return
//     codes and descriptive messages.
//
// Implementations:
//
//   - Remote Store: "github.com/ValentinKolb/dKV-connector/rpc/client"
//     forwards every operation to a dKV server over a transport.
//
//   - Memory Store: "github.com/ValentinKolb/dKV-connector/lib/store/memstore"
//     keeps everything in process. Expiration and deletion are measured in
//     write operations (a logical clock), the same way a dKV server does it.
package store
