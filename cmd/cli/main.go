package main

import (
	"log"

	"github.com/spf13/cobra"

	starfish "github.com/rodneyosodo/starfish"
	"github.com/rodneyosodo/starfish/cli"
	"github.com/rodneyosodo/starfish/pkg/sdk"
)

func main() {
	coordinatorURL := starfish.DefCoordinatorURL

	rootCmd := &cobra.Command{
		Use:   "starfish-cli",
		Short: "Starfish CLI",
		Long:  `Starfish CLI is a command line interface for driving federated analysis runs.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  coordinatorURL,
				TLSVerification: starfish.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetStarfishSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&coordinatorURL,
		"coordinator-url",
		"c",
		coordinatorURL,
		"Coordinator service URL",
	)

	rootCmd.AddCommand(cli.NewRunsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
