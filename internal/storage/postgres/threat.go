package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ThreatRecord is one stored city threat snapshot.
type ThreatRecord struct {
	ID             int64
	RunID          uuid.UUID
	Game           string
	Turn           int
	Player         world.PlayerID
	City           world.CityID
	CityName       string
	Danger         int
	Urgency        int
	GraveDanger    int
	WallValue      int
	DiplomatThreat bool
	DangerReduced  map[string]int
	BuildingWant   map[string]float64
	RecordedAt     time.Time
}

// ThreatRepository stores the per-city threat history the production
// advisor reads.
type ThreatRepository struct {
	db *pgxpool.Pool
}

// NewThreatRepository creates a ThreatRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewThreatRepository(db *pgxpool.Pool) *ThreatRepository {
	if db == nil {
		panic("postgres.NewThreatRepository: db must not be nil")
	}
	return &ThreatRepository{db: db}
}

// Record stores one row per city of report.
//
// Precondition: report must be non-nil.
// Postcondition: Returns the number of rows written.
func (r *ThreatRepository) Record(ctx context.Context, game string, report *ai.TurnReport) (int, error) {
	batch := &pgx.Batch{}
	for _, c := range report.Cities {
		reduced, err := json.Marshal(nonNilInts(c.DangerReduced))
		if err != nil {
			return 0, fmt.Errorf("postgres.ThreatRepository.Record: encoding danger_reduced: %w", err)
		}
		wants := make(map[string]float64, len(c.BuildingWant))
		for id, w := range c.BuildingWant {
			wants[id] = float64(w)
		}
		want, err := json.Marshal(wants)
		if err != nil {
			return 0, fmt.Errorf("postgres.ThreatRepository.Record: encoding building_want: %w", err)
		}
		batch.Queue(
			`INSERT INTO city_threats
			   (run_id, game, turn, player_id, city_id, city_name, danger, urgency,
			    grave_danger, wall_value, diplomat_threat, danger_reduced, building_want)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			report.RunID, game, report.Turn, int(report.Player), int(c.City), c.Name,
			c.Danger, c.Urgency, c.GraveDanger, c.WallValue, c.DiplomatThreat, reduced, want,
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("postgres.ThreatRepository.Record: %w", err)
	}
	return batch.Len(), nil
}

// History returns up to limit snapshots of city, newest turn first.
//
// Precondition: limit must be positive.
func (r *ThreatRepository) History(ctx context.Context, game string, city world.CityID, limit int) ([]ThreatRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, run_id, game, turn, player_id, city_id, city_name, danger, urgency,
		        grave_danger, wall_value, diplomat_threat, danger_reduced, building_want, recorded_at
		 FROM city_threats
		 WHERE game = $1 AND city_id = $2
		 ORDER BY turn DESC, id DESC
		 LIMIT $3`,
		game, int(city), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.ThreatRepository.History: %w", err)
	}
	defer rows.Close()

	var out []ThreatRecord
	for rows.Next() {
		var (
			rec             ThreatRecord
			player, cityID  int
			reduced, wanted []byte
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Game, &rec.Turn, &player, &cityID, &rec.CityName,
			&rec.Danger, &rec.Urgency, &rec.GraveDanger, &rec.WallValue, &rec.DiplomatThreat,
			&reduced, &wanted, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres.ThreatRepository.History: scanning: %w", err)
		}
		rec.Player = world.PlayerID(player)
		rec.City = world.CityID(cityID)
		if err := json.Unmarshal(reduced, &rec.DangerReduced); err != nil {
			return nil, fmt.Errorf("postgres.ThreatRepository.History: decoding danger_reduced: %w", err)
		}
		if err := json.Unmarshal(wanted, &rec.BuildingWant); err != nil {
			return nil, fmt.Errorf("postgres.ThreatRepository.History: decoding building_want: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.ThreatRepository.History: %w", err)
	}
	return out, nil
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
