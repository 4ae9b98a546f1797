// Package serializer converts RPC messages to and from bytes.
//
// Key Components:
//
//   - IRPCSerializer: Interface all serializers satisfy.
//
//   - jsonSerializerImpl: JSON encoding with message types written by name.
//     Human readable, useful for debugging and the HTTP transport.
//
//   - gobSerializerImpl: Go's gob encoding. Only useful when both sides are
//     Go programs.
//
// The client and the server must be configured with the same serializer.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
