package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rodneyosodo/starfish/run"
)

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [status|aggregate|result]",
		Short: "Rounds manager",
		Long:  `Inspect, aggregate and fetch results of federated rounds.`,
	}

	statusCmd := &cobra.Command{
		Use:   "status <run-id> <sequence> <round>",
		Short: "Round status",
		Long:  `Report how many sites have published local artifacts for a round.`,
		Run: func(cmd *cobra.Command, args []string) {
			runID, ref, ok := parseRoundArgs(cmd, args)
			if !ok {
				return
			}

			status, err := ssdk.RoundStatus(runID, ref)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}

	var quorum int
	aggregateCmd := &cobra.Command{
		Use:   "aggregate <run-id> <sequence> <round>",
		Short: "Aggregate round",
		Long:  `Pool the published local artifacts of a round into a global artifact.`,
		Run: func(cmd *cobra.Command, args []string) {
			runID, ref, ok := parseRoundArgs(cmd, args)
			if !ok {
				return
			}

			if err := ssdk.Aggregate(runID, ref, quorum); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}
	aggregateCmd.Flags().IntVarP(&quorum, "quorum", "q", 0, "Minimum sites to pool over; 0 requires every participant")

	resultCmd := &cobra.Command{
		Use:   "result <run-id> <sequence> <round>",
		Short: "Round result",
		Long:  `Fetch the aggregated global statistics of a round.`,
		Run: func(cmd *cobra.Command, args []string) {
			runID, ref, ok := parseRoundArgs(cmd, args)
			if !ok {
				return
			}

			stats, err := ssdk.GlobalStats(runID, ref)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			for _, s := range stats {
				logJSONCmd(*cmd, s)
			}
		},
	}

	cmd.AddCommand(statusCmd)
	cmd.AddCommand(aggregateCmd)
	cmd.AddCommand(resultCmd)

	return cmd
}

func parseRoundArgs(cmd *cobra.Command, args []string) (string, run.RoundRef, bool) {
	if len(args) != 3 {
		logUsageCmd(*cmd, cmd.Use)

		return "", run.RoundRef{}, false
	}

	seq, err := strconv.Atoi(args[1])
	if err != nil {
		logErrorCmd(*cmd, err)

		return "", run.RoundRef{}, false
	}
	round, err := strconv.Atoi(args[2])
	if err != nil {
		logErrorCmd(*cmd, err)

		return "", run.RoundRef{}, false
	}

	return args[0], run.RoundRef{Sequence: seq, Round: round}, true
}
