package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// SetDefenders reserves the best units in each city of player as
// DEFEND_HOME until their defense exceeds the danger to the city. Units
// already busy are only taken in an emergency, when no free unit is left.
// Cities never keep more than two attack-minded defenders, or four
// balanced ones, once the danger is covered.
func (e *Engine) SetDefenders(player world.PlayerID) {
	for _, c := range e.w.CitiesOf(player) {
		totalDefense := 0
		totalAttack := e.CityData(c).Danger
		emergency := false
		count := 0

		for totalDefense <= totalAttack {
			bestWant := 0
			var best *world.Unit
			for _, u := range e.w.UnitsAt(c.Tile) {
				task := e.Data(u).Task
				if u.Owner != player || task == TaskDefendHome || (task != TaskNone && !emergency) {
					continue
				}
				if want := e.AssessDefenseUnit(c, u, false); want > bestWant {
					bestWant = want
					best = u
				}
			}

			if best == nil {
				if emergency {
					e.log.Debug("not defended properly", zap.String("city", c.Name))
					break
				}
				emergency = true
				continue
			}

			att, def := best.Type.AttackStrength(), best.Type.DefenseStrength()
			if (count >= 2 && att > def) || (count >= 4 && att == def) {
				break
			}
			totalDefense += bestWant
			e.log.Debug("defending city", unitFields(best, zap.String("city", c.Name))...)
			tile := c.Tile
			e.NewTask(best, TaskDefendHome, &tile)
			count++
		}

		e.log.Debug("evaluated defense",
			zap.String("city", c.Name),
			zap.Int("defense", totalDefense),
			zap.Int("incoming", totalAttack),
			zap.Int("defenders", count),
			zap.Int("units", len(e.w.UnitsAt(c.Tile))),
		)
	}
}
