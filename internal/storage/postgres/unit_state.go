package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ErrUnitStateNotFound is returned when no AI state is stored for a unit.
var ErrUnitStateNotFound = errors.New("unit state not found")

// UnitStateRepository persists the engine's per-unit links and task
// between runs. Rows are keyed by game name and unit id.
type UnitStateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewUnitStateRepository creates a UnitStateRepository backed by the given
// pool. A nil logger discards the warnings about unreadable rows.
//
// Precondition: db must be a valid, open connection pool.
func NewUnitStateRepository(db *pgxpool.Pool, logger *zap.Logger) *UnitStateRepository {
	if db == nil {
		panic("postgres.NewUnitStateRepository: db must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitStateRepository{db: db, logger: logger}
}

// Save replaces the stored state of game with rows in one transaction.
// Units absent from rows are forgotten.
//
// Precondition: game must be non-empty.
// Postcondition: On success the table holds exactly rows for game.
func (r *UnitStateRepository) Save(ctx context.Context, game string, rows []ai.PersistedUnit) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.UnitStateRepository.Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM unit_ai_state WHERE game = $1`, game); err != nil {
		return fmt.Errorf("postgres.UnitStateRepository.Save: clearing %s: %w", game, err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO unit_ai_state (game, unit_id, task, ferryboat, passenger, charge, bodyguard)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			game, int(row.UnitID), row.Task.String(), row.Ferryboat, row.Passenger, row.Charge, row.Bodyguard,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres.UnitStateRepository.Save: inserting: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.UnitStateRepository.Save: commit: %w", err)
	}
	return nil
}

// Load returns every stored row of game ordered by unit id.
//
// Postcondition: Rows with an unknown task name load as TaskNone.
func (r *UnitStateRepository) Load(ctx context.Context, game string) ([]ai.PersistedUnit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT unit_id, task, ferryboat, passenger, charge, bodyguard
		 FROM unit_ai_state WHERE game = $1 ORDER BY unit_id`,
		game,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.UnitStateRepository.Load: %w", err)
	}
	defer rows.Close()

	var out []ai.PersistedUnit
	for rows.Next() {
		row, err := scanUnitState(rows, r.logger)
		if err != nil {
			return nil, fmt.Errorf("postgres.UnitStateRepository.Load: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.UnitStateRepository.Load: %w", err)
	}
	return out, nil
}

// Get returns the stored state of one unit.
//
// Postcondition: Returns ErrUnitStateNotFound when nothing is stored for id.
func (r *UnitStateRepository) Get(ctx context.Context, game string, id world.UnitID) (ai.PersistedUnit, error) {
	row, err := scanUnitState(r.db.QueryRow(ctx,
		`SELECT unit_id, task, ferryboat, passenger, charge, bodyguard
		 FROM unit_ai_state WHERE game = $1 AND unit_id = $2`,
		game, int(id),
	), r.logger)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ai.PersistedUnit{}, ErrUnitStateNotFound
		}
		return ai.PersistedUnit{}, fmt.Errorf("postgres.UnitStateRepository.Get: %w", err)
	}
	return row, nil
}

func scanUnitState(row pgx.Row, logger *zap.Logger) (ai.PersistedUnit, error) {
	var (
		p    ai.PersistedUnit
		id   int
		task string
	)
	if err := row.Scan(&id, &task, &p.Ferryboat, &p.Passenger, &p.Charge, &p.Bodyguard); err != nil {
		return ai.PersistedUnit{}, err
	}
	p.UnitID = world.UnitID(id)
	t, err := ai.ParseTask(task)
	if err != nil {
		// The engine re-plans units without a task.
		logger.Warn("unknown task, loading as none",
			zap.Int("unit_id", id), zap.String("task", task), zap.Error(err))
	}
	p.Task = t
	return p, nil
}
