package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
)

func (c *cli) advanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <cycle-id> <phase>",
		Short: "Move one cycle to the next phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := orchestrator.ParsePhase(args[1])
			if err != nil {
				return err
			}
			repo, closeFn, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			cycle, err := c.orchestrator(repo, nil).AdvancePhase(commandContext(cmd), args[0], target)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cycle)
		},
	}
}

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep <phase>",
		Short: "Advance today's cycle of every active zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := c.orchestrator(repo, nil).RunDailySweep(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			c.logger.Info("sweep finished",
				zap.String("target", report.Target),
				zap.Int("advanced", report.Advanced),
				zap.Int("skipped", report.Skipped),
				zap.Int("failed", report.Failed),
			)
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func (c *cli) scoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scores <cycle-id>",
		Short: "Recompute the optimization scores of a cycle's dishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := c.orchestrator(repo, nil).ComputeDishScores(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}

func (c *cli) transitionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "transitions <cycle-id>",
		Short: "Show the phase transition attempts of a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := commandContext(cmd)
			cycle, err := repo.GetCycle(ctx, args[0])
			if err != nil {
				return err
			}
			if cycle == nil {
				return fmt.Errorf("cycle %s: %w", args[0], orchestrator.ErrCycleNotFound)
			}
			items, err := repo.ListPhaseTransitions(ctx, cycle.ID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show")
	return cmd
}
