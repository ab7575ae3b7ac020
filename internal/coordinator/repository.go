package coordinator

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/fsscan"
	"github.com/diskvigil/diskvigil/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewRepository opens (and if needed creates) the coordinator database.
func NewRepository(dbPath string) (Repository, error) {
	errFactory := errors.New()

	if dbPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing intervention ledger at: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS interventions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            device_id TEXT NOT NULL,
            timestamp INTEGER NOT NULL,
            trigger_reason TEXT NOT NULL,
            health_score INTEGER NOT NULL,
            compression_mode TEXT NOT NULL,
            write_reduction REAL NOT NULL,
            life_extension_days REAL NOT NULL,
            compression_potential REAL NOT NULL,
            files_compressible INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_interventions_device
            ON interventions(device_id);
        CREATE TABLE IF NOT EXISTS health_state (
            device_id TEXT PRIMARY KEY,
            health_score REAL NOT NULL,
            updated_at INTEGER NOT NULL
        );
    `)
	return err
}

// AppendIntervention adds a record to the ledger. The ledger is append-only;
// records are never updated or deleted.
func (r *sqliteRepository) AppendIntervention(ctx context.Context, record *InterventionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `
        INSERT INTO interventions (
            device_id, timestamp, trigger_reason, health_score,
            compression_mode, write_reduction, life_extension_days,
            compression_potential, files_compressible
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		record.DeviceID,
		record.Timestamp.Unix(),
		record.TriggerReason,
		record.HealthScore,
		string(record.CompressionMode),
		record.WriteReduction,
		record.LifeExtensionDays,
		record.CompressionPotential,
		record.FilesCompressible,
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}

	return nil
}

// InterventionsFor returns the device's ledger entries, oldest first.
func (r *sqliteRepository) InterventionsFor(ctx context.Context, deviceID string) ([]InterventionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, device_id, timestamp, trigger_reason, health_score,
               compression_mode, write_reduction, life_extension_days,
               compression_potential, files_compressible
        FROM interventions
        WHERE device_id = ?
        ORDER BY id ASC
    `, deviceID)
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var records []InterventionRecord
	for rows.Next() {
		var record InterventionRecord
		var ts int64
		var mode string
		if err := rows.Scan(
			&record.ID,
			&record.DeviceID,
			&ts,
			&record.TriggerReason,
			&record.HealthScore,
			&mode,
			&record.WriteReduction,
			&record.LifeExtensionDays,
			&record.CompressionPotential,
			&record.FilesCompressible,
		); err != nil {
			return nil, errors.New().Wrap(ErrStorageAccess, err)
		}
		record.Timestamp = time.Unix(ts, 0).UTC()
		record.CompressionMode = fsscan.ReductionMode(mode)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	return records, nil
}

// PreviousHealth returns the health score saved by the last cycle, if any.
func (r *sqliteRepository) PreviousHealth(ctx context.Context, deviceID string) (float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var score float64
	err := r.db.QueryRowContext(ctx, `
        SELECT health_score FROM health_state WHERE device_id = ?
    `, deviceID).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.New().Wrap(ErrStorageAccess, err)
	}

	return score, true, nil
}

// SaveHealth upserts the device's current health score.
func (r *sqliteRepository) SaveHealth(ctx context.Context, deviceID string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO health_state (device_id, health_score, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(device_id) DO UPDATE SET
            health_score = excluded.health_score,
            updated_at = excluded.updated_at
    `, deviceID, score, time.Now().Unix())
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
