package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/tactics/internal/report"
)

func newSimulateCmd(opts *options) *cobra.Command {
	var (
		turns  int
		tables bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play the AI players of a scenario for a number of turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if turns < 1 {
				return fmt.Errorf("--turns must be >= 1, got %d", turns)
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			players := s.game.AIPlayers()
			titleColor.Fprintf(out, "Simulating %q: %d turns, %d AI players\n", s.sc.Name, turns, len(players))
			for i := 0; i < turns; i++ {
				turn := s.game.Turn()
				titleColor.Fprintf(out, "\n== Turn %d ==\n", turn)
				for _, id := range players {
					r, err := s.game.PlayTurn(cmd.Context(), id)
					if err != nil {
						return err
					}
					line := fmt.Sprintf("[%s] %s", playerName(s.sc.World, id), report.Summarize(r))
					if grave(r) {
						alertColor.Fprintln(out, line)
					} else {
						fmt.Fprintln(out, line)
					}
					if tables {
						if err := report.WriteThreats(out, r); err != nil {
							return err
						}
						if err := report.WriteTasks(out, r); err != nil {
							return err
						}
					}
				}
				if err := s.game.EndTurn(cmd.Context()); err != nil {
					return err
				}
			}
			infoColor.Fprintf(out, "\n%d units alive after %d turns\n", len(s.sc.World.AllUnits()), turns)
			return nil
		},
	}
	cmd.Flags().IntVarP(&turns, "turns", "n", 5, "number of turns to play")
	cmd.Flags().BoolVar(&tables, "tables", false, "print threat and task tables after every player turn")
	return cmd
}
