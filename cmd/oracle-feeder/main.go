package main

import (
	"fmt"
	"os"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/jacksteroo/oracle-feeder/pkg/version"
)

func main() {
	// Configure the SDK with Terra prefixes before any address parsing.
	sdkConfig := sdk.GetConfig()
	sdkConfig.SetBech32PrefixForAccount("terra", "terrapub")
	sdkConfig.SetBech32PrefixForValidator("terravaloper", "terravaloperpub")
	sdkConfig.SetBech32PrefixForConsensusNode("terravalcons", "terravalconspub")
	sdkConfig.SetCoinType(330)
	sdkConfig.SetPurpose(44)
	sdkConfig.Seal()

	rootCmd := &cobra.Command{
		Use:           "oracle-feeder",
		Short:         "Oracle price feeder for commit-reveal voting chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		voteCmd(),
		updateKeyCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.AgentString())
		},
	}
}
