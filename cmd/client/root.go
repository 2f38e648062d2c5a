package client

import (
	"github.com/ValentinKolb/dEcho/cmd/util"
	"github.com/ValentinKolb/dEcho/rpc/client"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/spf13/cobra"
)

var (
	rpcClient    *client.Client
	clientConfig *common.ClientConfig

	// newClient creates an additional connected client with the same settings as rpcClient
	newClient func() (*client.Client, error)

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:                "client",
		Short:              "Send requests to a dEcho server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Add connection flags to the client command
	util.SetupClientFlags(ClientCommands)

	// Add subcommands
	ClientCommands.AddCommand(echoCmd)
	ClientCommands.AddCommand(addCmd)
	ClientCommands.AddCommand(perfTestCmd)
}

// setupClient creates and connects the client used by all subcommands
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	// Get client configuration components
	clientConfig = util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	connector, err := util.GetClientConnector()
	if err != nil {
		return err
	}
	framer, err := util.GetFramer(clientConfig.MaxFrameSize)
	if err != nil {
		return err
	}

	newClient = func() (*client.Client, error) {
		c := client.NewClient(*clientConfig, connector, s, framer)
		if err := c.Connect(); err != nil {
			return nil, err
		}
		return c, nil
	}

	rpcClient, err = newClient()
	return err
}

func closeClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	return rpcClient.Close()
}
