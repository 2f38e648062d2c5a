package client

import (
	"fmt"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
)

var (
	echoCmd = &cobra.Command{
		Use:   "echo [content...]",
		Short: "Sends text to the server and prints the echo",
		Long:  "Sends text to the server and prints the echo. Multiple arguments are joined with a single space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			echo, err := rpcClient.Echo(content)
			if err != nil {
				return err
			}
			fmt.Println(echo)
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [a] [b]",
		Short: "Adds two 32 bit integers on the server",
		Long:  "Adds two 32 bit integers on the server. The result wraps around on overflow. Use -- before negative numbers (e.g. decho client add -- -1 5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseInt32(args[0])
			if err != nil {
				return fmt.Errorf("a must be a 32 bit integer: %w", err)
			}
			b, err := parseInt32(args[1])
			if err != nil {
				return fmt.Errorf("b must be a 32 bit integer: %w", err)
			}
			result, err := rpcClient.Add(a, b)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
)

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
