package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/report"
)

func newTargetsCmd(opts *options) *cobra.Command {
	var (
		player string
		unit   string
	)
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List what each military unit of a player would attack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			w := s.sc.World
			var units []*world.Unit
			if unit != "" {
				id, ok := s.sc.Labels[unit]
				if !ok {
					return fmt.Errorf("%w: label %q", world.ErrUnknownUnit, unit)
				}
				u, ok := w.Unit(id)
				if !ok {
					return fmt.Errorf("%w: label %q", world.ErrUnknownUnit, unit)
				}
				units = append(units, u)
			} else {
				id, err := playerArg(w, player)
				if err != nil {
					return err
				}
				for _, u := range w.UnitsOf(id) {
					if u.Type.IsMilitary() && u.Type.CanAttack() {
						units = append(units, u)
					}
				}
			}

			eng := s.rig.Engine
			began := make(map[world.PlayerID]bool)
			var rows []report.Target
			for _, u := range units {
				if !began[u.Owner] {
					if err := eng.BeginTurn(u.Owner); err != nil {
						return err
					}
					eng.AssessDangerPlayer(u.Owner)
					began[u.Owner] = true
				}
				t := eng.FindSomethingToKill(u)
				row := report.Target{Unit: u.String(), Tile: t.Tile.String(), Want: t.Want}
				switch {
				case t.Want <= 0:
					row.Tile, row.Detail = "-", "nothing worth attacking"
				case w.CityAt(t.Tile) != nil:
					row.Detail = fmt.Sprintf("city %s in %d turns", w.CityAt(t.Tile).Name, t.MoveTime)
				default:
					row.Detail = fmt.Sprintf("units in %d turns", t.MoveTime)
				}
				if t.Want > 0 && t.ByBoat {
					row.Detail += " by boat"
				}
				rows = append(rows, row)
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].Want > rows[j].Want })

			out := cmd.OutOrStdout()
			titleColor.Fprintf(out, "Targets (turn %d)\n", w.Turn)
			return report.WriteTargets(out, rows)
		},
	}
	cmd.Flags().StringVarP(&player, "player", "p", "1", "player id or name")
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "scenario unit label; overrides --player")
	return cmd
}
