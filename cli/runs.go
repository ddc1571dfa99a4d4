package cli

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"

	"github.com/rodneyosodo/starfish/pkg/sdk"
	"github.com/rodneyosodo/starfish/run"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

var ssdk sdk.SDK

func SetStarfishSDK(s sdk.SDK) {
	ssdk = s
}

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [create|view|list]",
		Short: "Runs manager",
		Long:  `Create, view and list federated runs.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <definition.toml>",
		Short: "Create run",
		Long: `Create a federated run from a TOML definition.

Examples:
  # Submit a two-site linear regression job
  starfish-cli runs create examples/linear.toml`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			var r run.Run
			if err := toml.Unmarshal(data, &r); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			created, err := ssdk.CreateRun(r)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := ssdk.GetRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Long:  `List runs.`,
		Run: func(cmd *cobra.Command, args []string) {
			page, err := ssdk.ListRuns(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
