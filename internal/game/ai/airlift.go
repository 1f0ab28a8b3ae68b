package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// hasAirport reports whether c can send and receive airlifts.
func (e *Engine) hasAirport(c *world.City) bool {
	for _, id := range c.Buildings() {
		if imp, ok := e.rules.Improvement(id); ok && imp.Airport {
			return true
		}
	}
	return false
}

// neediestAirliftCity is the airport city of player with the highest
// urgency or, when no city is urgent, the highest danger.
func (e *Engine) neediestAirliftCity(player world.PlayerID) *world.City {
	var (
		neediest   *world.City
		mostDanger int
		mostUrgent int
	)
	for _, c := range e.w.CitiesOf(player) {
		if !e.hasAirport(c) {
			continue
		}
		data := e.CityData(c)
		switch {
		case data.Urgency > mostUrgent:
			mostUrgent = data.Urgency
			neediest = c
		case mostUrgent == 0 && data.Danger > mostDanger:
			mostDanger = data.Danger
			neediest = c
		}
	}
	return neediest
}

// canAirlift reports whether u may fly from its city to dest this turn.
func (e *Engine) canAirlift(u *world.Unit, dest *world.City, used map[world.CityID]bool) bool {
	src := e.w.CityAt(u.Tile)
	if src == nil || src.ID == dest.ID || src.Owner != u.Owner || used[src.ID] {
		return false
	}
	if u.Type.Class == nil || !u.Type.Class.Airliftable || u.MovesLeft <= 0 || u.Transported() {
		return false
	}
	return e.hasAirport(src)
}

// Airlift moves spare attackers from calm airport cities to the airport
// city that needs them most. Each city sends at most one unit per turn.
func (e *Engine) Airlift(player world.PlayerID) {
	used := make(map[world.CityID]bool)
	for range e.w.UnitsOf(player) {
		neediest := e.neediestAirliftCity(player)
		if neediest == nil {
			return
		}
		var (
			transported *world.Unit
			comparison  int
		)
		for _, u := range e.w.UnitsOf(player) {
			c := e.w.CityAt(u.Tile)
			if c == nil {
				continue
			}
			data := e.CityData(c)
			task := e.Data(u).Task
			defense := u.Type.DefenseStrength()
			if data.Urgency == 0 && data.Danger-defense < comparison &&
				e.canAirlift(u, neediest, used) && defense > 2 &&
				(task == TaskNone || task == TaskDefendHome) && isAttacker(u.Type) {
				comparison = data.Danger
				transported = u
			}
		}
		if transported == nil {
			return
		}
		from := e.w.CityAt(transported.Tile)
		used[from.ID] = true
		e.log.Debug("airlifted to defend", unitFields(transported, zap.String("city", neediest.Name))...)
		if !e.do(transported, Action{Kind: ActAirlift, City: neediest.ID}) || transported.Tile != neediest.Tile {
			return
		}
	}
}
