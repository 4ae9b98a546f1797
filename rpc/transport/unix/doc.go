// Package unix implements the Unix domain socket client transport for dKV RPC,
// for clients running on the same machine as the server. Framing, retries and
// reconnects come from the base package.
package unix
