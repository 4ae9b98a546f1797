// Package memstore implements store.IStore entirely in memory.
//
// It backs the loopback transport, which lets the connector run against an
// in-process "server" (tests, the --embedded flag of dkvc). Values are copied on
// the way in and out, so callers can not mutate stored data.
//
// Expiration and deletion follow dKV semantics: expireIn and deleteIn count
// write operations, not seconds. An expired key is still reported by Has but
// not returned by Get; a deleted key is gone.
//
// All operations are safe for concurrent use.
package memstore
