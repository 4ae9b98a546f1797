// Package tcp implements the TCP client transport for dKV RPC. It plugs a
// TCP specific connector into the base package, which handles framing,
// request correlation, retries and reconnects.
//
// UpgradeConnection applies the TCP options of the client configuration
// (no delay, keep-alive, linger) and the socket buffer sizes.
package tcp
