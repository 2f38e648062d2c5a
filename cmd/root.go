package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dEcho/cmd/client"
	"github.com/ValentinKolb/dEcho/cmd/serve"
	"github.com/ValentinKolb/dEcho/cmd/util"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "decho",
		Short: "echo and addition service over TCP",
		Long: fmt.Sprintf(`dEcho (v%s)

A small TCP service that echoes text messages and adds pairs of integers.
Servers are shared per address and reference counted, so several holders
can acquire the same listener and the last one to release it stops it.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dEcho",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dEcho v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "proto", util.WrapString("serializer to use (proto, binary, json)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "framing"
	RootCmd.PersistentFlags().String(key, transport.FramingRaw, util.WrapString("how messages are delimited on the stream (raw: one read is one message, length-prefixed: 4 byte big endian length before every message)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
