// Package transport defines the client side contract for RPC communication with
// a dKV server. All implementations route requests by shard ID and report a
// closed transport with ErrClosed, which the connector maps onto its
// connection-state error.
//
// Implementations:
//
//   - tcp, unix: framed socket clients built on the base package
//   - http: one POST per request, round robin across endpoints
//   - loopback: serves requests in-process from a store.IStore
package transport
