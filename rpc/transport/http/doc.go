// Package http implements an HTTP client transport for dKV RPC. Every request
// is a POST of the serialized message to <endpoint>/<shardId>; endpoints are
// used round robin and failed requests are retried up to the configured count.
//
// The transport is safe for concurrent use. After Close, Send returns
// transport.ErrClosed.
package http
