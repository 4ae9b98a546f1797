// Package base provides the protocol-agnostic part of the socket client
// transports (tcp, unix). A protocol only supplies an IClientConnector that
// dials and tunes a net.Conn.
//
// Key Components:
//
//   - clientTransport: Manages one or more connections per endpoint with
//     round-robin selection. Requests and responses are correlated by request
//     ID, so many requests can be in flight on one connection.
//
//   - Frames: Every message is sent as a 20 byte header (shard ID, request ID,
//     payload length, all big endian) followed by the payload. Header and
//     payload are written with net.Buffers to save a syscall.
//
// Failures:
//
//	Send retries with exponential backoff and jitter. After Close every Send
//	fails with transport.ErrClosed, which is how the connector notices that a
//	cached handle was closed underneath it.
package base
