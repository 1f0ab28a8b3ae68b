// Package report renders engine turn reports for people: terminal tables
// for the CLI and prose summaries for the daemon log.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/cory-johannsen/tactics/internal/game/ai"
)

// Summarize returns a one-paragraph plain summary of r.
func Summarize(r *ai.TurnReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn %d, player %d: %d cities assessed", r.Turn, r.Player, len(r.Cities))
	var threatened []string
	for _, c := range r.Cities {
		if c.GraveDanger > 0 {
			threatened = append(threatened, fmt.Sprintf("%s (grave, danger %d)", c.Name, c.Danger))
		} else if c.Danger > 0 {
			threatened = append(threatened, fmt.Sprintf("%s (danger %d)", c.Name, c.Danger))
		}
	}
	if len(threatened) > 0 {
		fmt.Fprintf(&b, "; under threat: %s", strings.Join(threatened, ", "))
	} else {
		b.WriteString("; no city is threatened")
	}
	if tasks := taskSummary(r.Tasks); tasks != "" {
		fmt.Fprintf(&b, ". Units: %s", tasks)
	}
	if n := len(r.Died); n > 0 {
		fmt.Fprintf(&b, ". %d units died", n)
	}
	if n := len(r.BoatRequests); n > 0 {
		fmt.Fprintf(&b, ". %d units are waiting for a boat", n)
	}
	b.WriteString(".")
	return b.String()
}

func taskSummary(tasks map[ai.Task]int) string {
	var parts []string
	for _, t := range ai.Tasks {
		if n := tasks[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	return strings.Join(parts, ", ")
}

// WriteThreats renders the city threat table of r.
func WriteThreats(w io.Writer, r *ai.TurnReport) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"City", "Danger", "Urgency", "Grave", "Walls", "Diplomat", "Top Want"}),
	)
	for _, c := range r.Cities {
		row := []string{
			c.Name,
			strconv.Itoa(c.Danger),
			strconv.Itoa(c.Urgency),
			strconv.Itoa(c.GraveDanger),
			strconv.Itoa(c.WallValue),
			strconv.FormatBool(c.DiplomatThreat),
			topWant(c.BuildingWant),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func topWant(wants map[string]ai.Want) string {
	ids := make([]string, 0, len(wants))
	for id := range wants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best, bestWant := "-", ai.Want(0)
	for _, id := range ids {
		if wants[id] > bestWant {
			best, bestWant = id, wants[id]
		}
	}
	if best == "-" {
		return best
	}
	return fmt.Sprintf("%s (%.1f)", best, float64(bestWant))
}

// WriteTasks renders how many units hold each task in r.
func WriteTasks(w io.Writer, r *ai.TurnReport) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Task", "Units"}))
	for _, t := range ai.Tasks {
		if n := r.Tasks[t]; n > 0 {
			if err := table.Append([]string{t.String(), strconv.Itoa(n)}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

// Target is one row of a target listing.
type Target struct {
	Unit   string
	Tile   string
	Want   ai.Want
	Detail string
}

// WriteTargets renders targets in the order given.
func WriteTargets(w io.Writer, targets []Target) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Unit", "Target", "Want", "Detail"}))
	for _, t := range targets {
		if err := table.Append([]string{t.Unit, t.Tile, strconv.FormatFloat(float64(t.Want), 'f', 1, 64), t.Detail}); err != nil {
			return err
		}
	}
	return table.Render()
}
