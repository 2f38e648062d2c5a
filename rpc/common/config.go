package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Default values
// --------------------------------------------------------------------------

const (
	// DefaultReadBufferSize is the number of bytes read from a socket per receive step
	DefaultReadBufferSize = 512
	// DefaultMaxFrameSize is the largest frame accepted by length prefixed framing
	DefaultMaxFrameSize = 4 * 1024 * 1024
	// DefaultAcceptPollMillisecond bounds how long one accept call may wait before the running flag is checked again
	DefaultAcceptPollMillisecond = 100
	// DefaultClientTimeoutSecond is the connect, read and write timeout of the client
	DefaultClientTimeoutSecond = 5
)

// --------------------------------------------------------------------------
// Socket configuration struct
// --------------------------------------------------------------------------

// SocketConf holds options that are applied to every accepted or dialed connection.
// Fields that do not apply to a transport (e.g. TCP options on unix sockets) are ignored.
type SocketConf struct {
	// socket buffer sizes in bytes (0 = OS default)
	WriteBufferSize int
	ReadBufferSize  int

	// TCP only
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative = OS default
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the servers of a registry.
type ServerConfig struct {
	// Endpoints to serve (host:port for tcp, a socket path for unix)
	Endpoints []string

	// ReadBufferSize is the size of the per connection receive buffer
	ReadBufferSize int
	// MaxFrameSize is only used by length prefixed framing
	MaxFrameSize int

	// AcceptPollMillisecond is the bounded wait of one accept attempt
	AcceptPollMillisecond int64
	// IdleTimeoutSecond closes connections that send nothing for this long (0 = never)
	IdleTimeoutSecond int64
	// ForceCloseOnStop closes live connections once the accept loop stopped
	ForceCloseOnStop bool

	// MetricsEndpoint is the address of the prometheus endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	Socket SocketConf
}

// DefaultServerConfig returns a server configuration with all defaults set
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoints:             []string{"127.0.0.1:8080"},
		ReadBufferSize:        DefaultReadBufferSize,
		MaxFrameSize:          DefaultMaxFrameSize,
		AcceptPollMillisecond: DefaultAcceptPollMillisecond,
		LogLevel:              "info",
		Socket: SocketConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// AcceptPoll returns the accept poll interval as a duration
func (c *ServerConfig) AcceptPoll() time.Duration {
	if c.AcceptPollMillisecond <= 0 {
		return DefaultAcceptPollMillisecond * time.Millisecond
	}
	return time.Duration(c.AcceptPollMillisecond) * time.Millisecond
}

// IdleTimeout returns the idle timeout as a duration (0 = disabled)
func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSecond) * time.Second
}

// Validate checks the configuration for invalid values
func (c *ServerConfig) Validate() error {
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive, got %d", c.MaxFrameSize)
	}
	if c.AcceptPollMillisecond < 0 {
		return fmt.Errorf("accept poll interval must not be negative, got %d", c.AcceptPollMillisecond)
	}
	if c.IdleTimeoutSecond < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %d", c.IdleTimeoutSecond)
	}
	for _, endpoint := range c.Endpoints {
		if strings.TrimSpace(endpoint) == "" {
			return fmt.Errorf("empty endpoint in %v", c.Endpoints)
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	// Connection handling
	addSection("Connections")
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Accept Poll", c.AcceptPoll().String())
	if c.IdleTimeoutSecond > 0 {
		addField("Idle Timeout", fmt.Sprintf("%d sec", c.IdleTimeoutSecond))
	} else {
		addField("Idle Timeout", "disabled")
	}
	addField("Force Close On Stop", strconv.FormatBool(c.ForceCloseOnStop))

	// Socket options
	addSection("Socket")
	addField("TCP No Delay", strconv.FormatBool(c.Socket.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Socket.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Socket.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Socket.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Socket.ReadBufferSize))

	// Observability
	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint       string
	TimeoutSecond  int
	ReadBufferSize int
	MaxFrameSize   int
	Socket         SocketConf
}

// DefaultClientConfig returns a client configuration with all defaults set
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:       endpoint,
		TimeoutSecond:  DefaultClientTimeoutSecond,
		ReadBufferSize: 1024,
		MaxFrameSize:   DefaultMaxFrameSize,
		Socket: SocketConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// Timeout returns the client timeout as a duration (0 = no timeout)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.Socket.TCPNoDelay))

	return sb.String()
}
