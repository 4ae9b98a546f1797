// Package common provides the data structures shared by the client side of the
// dKV RPC system: the wire message, the client configuration and the logger.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with factory
//     methods for every key-value request and a single NewResponse factory
//     used by in-process servers (see the loopback transport).
//
//   - MessageType: Enumeration of all supported key-value operations plus the
//     success and error control messages.
//
//   - ClientConfig: Configuration for client transports, controlling endpoints,
//     timeouts, retries and socket tuning.
//
//   - Logger: Custom formatter for Dragonboat's logging system. InitLoggers
//     installs it and sets the level of every client logger.
package common
