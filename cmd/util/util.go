package util

import (
	"fmt"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/ValentinKolb/dEcho/rpc/transport/tcp"
	"github.com/ValentinKolb/dEcho/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DECHO_SERIALIZER)
	EnvPrefix = "decho"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and sets up viper to read DECHO_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupClientFlags adds the connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "127.0.0.1:8080", WrapString("The address of the dEcho server (e.g. 127.0.0.1:8080 or /tmp/decho.sock)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultClientTimeoutSecond, WrapString("The connect, read and write timeout of the client in seconds (0 = none)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 1024, WrapString("The size of the buffer a response is read into (in bytes)"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, WrapString("The largest frame accepted with length-prefixed framing (in bytes)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp, 0 = disabled)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := common.DefaultClientConfig(viper.GetString("endpoint"))
	conf.TimeoutSecond = viper.GetInt("timeout")
	conf.ReadBufferSize = viper.GetInt("read-buffer")
	conf.MaxFrameSize = viper.GetInt("max-frame-size")
	conf.Socket.TCPNoDelay = viper.GetBool("tcp-nodelay")
	conf.Socket.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	return &conf
}

// --------------------------------------------------------------------------
// Components
// --------------------------------------------------------------------------

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.NewSerializer(viper.GetString("serializer"))
}

// GetFramer creates the framing based on configuration
func GetFramer(maxFrameSize int) (transport.IFramer, error) {
	return transport.NewFramer(viper.GetString("framing"), maxFrameSize)
}

// GetServerConnector creates the server side transport based on configuration
func GetServerConnector() (transport.IServerConnector, error) {
	switch name := viper.GetString("transport"); name {
	case "tcp":
		return tcp.NewTCPServerConnector(), nil
	case "unix":
		return unix.NewUnixServerConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetClientConnector creates the client side transport based on configuration
func GetClientConnector() (transport.IClientConnector, error) {
	switch name := viper.GetString("transport"); name {
	case "tcp":
		return tcp.NewTCPClientConnector(), nil
	case "unix":
		return unix.NewUnixClientConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// --------------------------------------------------------------------------
// Logging
// --------------------------------------------------------------------------

// Logger is the logger of the command line interface
var Logger = logger.GetLogger("cli")

// InitLogging installs the dEcho logger with the configured log level
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}
