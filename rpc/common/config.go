package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC client configuration structs
// --------------------------------------------------------------------------

// SocketConf holds buffer settings shared by all socket based transports
type SocketConf struct {
	WriteBufferSize int `mapstructure:"write-buffer"`
	ReadBufferSize  int `mapstructure:"read-buffer"`
}

// TCPConf holds settings only used by the tcp transport
type TCPConf struct {
	TCPNoDelay      bool `mapstructure:"tcp-nodelay"`
	TCPKeepAliveSec int  `mapstructure:"tcp-keepalive"`
	TCPLingerSec    int  `mapstructure:"tcp-linger"`
}

// ClientTransportConfig holds the transport layer part of the client configuration
type ClientTransportConfig struct {
	Endpoints              []string   `mapstructure:"endpoints"`
	RetryCount             int        `mapstructure:"retries"`
	ConnectionsPerEndpoint int        `mapstructure:"conn-per-endpoint"`
	SocketConf             SocketConf `mapstructure:",squash"`
	TCPConf                TCPConf    `mapstructure:",squash"`
}

// ClientConfig is the configuration of a single RPC client
type ClientConfig struct {
	TimeoutSecond int                   `mapstructure:"timeout"`
	Transport     ClientTransportConfig `mapstructure:"transport"`
}

// ConnectionsPerEndpoint returns the configured number of connections per endpoint (at least 1)
func (c *ClientConfig) ConnectionsPerEndpoint() int {
	return max(1, c.Transport.ConnectionsPerEndpoint)
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	sb := &strings.Builder{}

	// General Client Settings
	WriteSection(sb, "Client Configuration")
	WriteField(sb, "Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	WriteField(sb, "Retry Count", strconv.Itoa(c.Transport.RetryCount))
	WriteField(sb, "Connections Per Endpoint", strconv.Itoa(c.ConnectionsPerEndpoint()))
	WriteField(sb, "Write Buffer", fmt.Sprintf("%d bytes", c.Transport.SocketConf.WriteBufferSize))
	WriteField(sb, "Read Buffer", fmt.Sprintf("%d bytes", c.Transport.SocketConf.ReadBufferSize))
	WriteField(sb, "TCP No Delay", strconv.FormatBool(c.Transport.TCPConf.TCPNoDelay))

	// Endpoints
	WriteSection(sb, "Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		WriteField(sb, strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Formatting helpers (shared with the connector config)
// --------------------------------------------------------------------------

// WriteSection writes an upper case section title
func WriteSection(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

// WriteField writes an aligned "name: value" line
func WriteField(sb *strings.Builder, name, value string) {
	sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
}
