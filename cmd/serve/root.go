package serve

import (
	"context"
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dEcho/cmd/util"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// metricsShutdownTimeout bounds the graceful shutdown of the metrics endpoint
const metricsShutdownTimeout = 5 * time.Second

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dEcho server",
		Long:    `Start the dEcho server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DECHO_<flag> (e.g. DECHO_IDLE_TIMEOUT=30)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoints"
	ServeCmd.PersistentFlags().String(key, strings.Join(defaults.Endpoints, ","), cmdUtil.WrapString("Comma-separated list of addresses to listen on (e.g. 127.0.0.1:8080, /tmp/decho.sock). An address listed twice shares one server"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadBufferSize, cmdUtil.WrapString("The size of the per connection read buffer (in bytes). With raw framing this is the largest message that can be received"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxFrameSize, cmdUtil.WrapString("The largest frame accepted with length-prefixed framing (in bytes)"))

	key = "accept-poll"
	ServeCmd.PersistentFlags().Int64(key, defaults.AcceptPollMillisecond, cmdUtil.WrapString("How long a single accept waits before the stop flag is checked again (in milliseconds)"))

	key = "idle-timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Close connections that did not send a message for this many seconds (0 = never)"))

	key = "force-close"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Close open client connections when a server stops instead of letting them finish"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP endpoint serving prometheus metrics under /metrics (e.g. 127.0.0.1:9090, empty = disabled)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval of accepted connections (in seconds, only for tcp, 0 = disabled)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time of accepted connections (in seconds, only for tcp, -1 = system default)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	*serveCmdConfig = common.DefaultServerConfig()

	// parse endpoints
	serveCmdConfig.Endpoints = serveCmdConfig.Endpoints[:0]
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		serveCmdConfig.Endpoints = append(serveCmdConfig.Endpoints, strings.TrimSpace(endpoint))
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer")
	serveCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.AcceptPollMillisecond = viper.GetInt64("accept-poll")
	serveCmdConfig.IdleTimeoutSecond = viper.GetInt64("idle-timeout")
	serveCmdConfig.ForceCloseOnStop = viper.GetBool("force-close")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Socket.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Socket.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.Socket.TCPLingerSec = viper.GetInt("tcp-linger")

	return serveCmdConfig.Validate()
}

// run starts one server per distinct endpoint and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}
	fmt.Println(serveCmdConfig.String())

	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}
	connector, err := cmdUtil.GetServerConnector()
	if err != nil {
		return err
	}
	framer, err := cmdUtil.GetFramer(serveCmdConfig.MaxFrameSize)
	if err != nil {
		return err
	}

	registry := server.NewRegistry(*serveCmdConfig, connector, s, framer, server.NewEchoAdapter())
	defer registry.Close()

	// acquire all endpoints before serving so a bind error aborts the start
	servers := make([]*server.Server, 0, len(serveCmdConfig.Endpoints))
	for _, endpoint := range serveCmdConfig.Endpoints {
		srv, err := registry.Acquire(endpoint)
		if err != nil {
			return err
		}
		servers = append(servers, srv)
	}

	var metricsServer *http.Server
	if serveCmdConfig.MetricsEndpoint != "" {
		metricsServer = startMetricsServer(serveCmdConfig.MetricsEndpoint, registry)
	}

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *server.Server) {
			defer wg.Done()
			if err := srv.Run(); err != nil && !errors.Is(err, common.ErrServerClosed) {
				cmdUtil.Logger.Errorf("Server on %s failed: %v", srv.Address(), err)
			}
		}(srv)
	}

	// wait for a shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	cmdUtil.Logger.Infof("Received %s, shutting down", received)

	registry.Close()
	wg.Wait()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			cmdUtil.Logger.Warningf("Failed to shut down metrics endpoint: %v", err)
		}
	}
	return nil
}

// startMetricsServer serves the registry metrics and the process metrics on /metrics
func startMetricsServer(endpoint string, registry *server.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		registry.WritePrometheus(w)
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		cmdUtil.Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cmdUtil.Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()
	return srv
}
