package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/report"
)

func newThreatCmd(opts *options) *cobra.Command {
	var player string
	cmd := &cobra.Command{
		Use:   "threat",
		Short: "Show how endangered every city is",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			w := s.sc.World
			var ids []world.PlayerID
			if player != "" {
				id, err := playerArg(w, player)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			} else {
				for _, p := range w.Players() {
					ids = append(ids, p.ID)
				}
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				eng := s.rig.Engine
				if err := eng.BeginTurn(id); err != nil {
					return err
				}
				eng.AssessDangerPlayer(id)
				r := &ai.TurnReport{Player: id, Turn: w.Turn, Cities: eng.CityReports(id)}
				titleColor.Fprintf(out, "\nCities of %s (turn %d)\n", playerName(w, id), w.Turn)
				if len(r.Cities) == 0 {
					fmt.Fprintln(out, "no cities")
					continue
				}
				if err := report.WriteThreats(out, r); err != nil {
					return err
				}
				for _, c := range r.Cities {
					if c.GraveDanger > 0 {
						alertColor.Fprintf(out, "%s is in grave danger\n", c.Name)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&player, "player", "p", "", "player id or name; empty shows every player")
	return cmd
}

func grave(r *ai.TurnReport) bool {
	for _, c := range r.Cities {
		if c.GraveDanger > 0 {
			return true
		}
	}
	return false
}
