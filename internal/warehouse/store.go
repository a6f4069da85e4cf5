package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "fleetlogix/pkg/errors"
)

// Store is the warehouse surface the reconciler writes through. The SQL
// implementation talks to Snowflake; tests substitute an in-memory one.
type Store interface {
	EnsureTable(ctx context.Context, schema TableSchema) error
	CountRows(ctx context.Context, table string) (int64, error)
	FetchExistingKeys(ctx context.Context, schema TableSchema) (map[int64]struct{}, error)
	CreateStaging(ctx context.Context, schema TableSchema) (string, error)
	StageRows(ctx context.Context, schema TableSchema, staging string, rows []Row) error
	Merge(ctx context.Context, schema TableSchema, staging string) error
	DropStaging(ctx context.Context, staging string) error
	DeleteByKeys(ctx context.Context, schema TableSchema, keys []int64) error
	InsertRows(ctx context.Context, schema TableSchema, rows []Row) error
}

// SQLStore implements Store on a live database handle.
type SQLStore struct {
	db         *sql.DB
	chunkSize  int
	log        logrus.FieldLogger
	stagingSeq func() string
}

// NewSQLStore wraps a connected handle. chunkSize bounds how many rows go
// into one multi-row INSERT; values below 1 fall back to 1000.
func NewSQLStore(db *sql.DB, chunkSize int, log logrus.FieldLogger) *SQLStore {
	if chunkSize < 1 {
		chunkSize = 1000
	}
	return &SQLStore{
		db:        db,
		chunkSize: chunkSize,
		log:       log.WithField("component", "store"),
		stagingSeq: func() string {
			return time.Now().Format("150405")
		},
	}
}

// EnsureTable creates the target table when it does not exist yet.
func (s *SQLStore) EnsureTable(ctx context.Context, schema TableSchema) error {
	query := schema.CreateTableSQL()
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTableCreation,
			"Failed to ensure target table").WithContext("table", schema.Table)
	}
	return nil
}

// CountRows returns the current row count of the table.
func (s *SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.SQLError("Failed to count rows", query, err)
	}
	return count, nil
}

// FetchExistingKeys loads every key currently in the target table.
func (s *SQLStore) FetchExistingKeys(ctx context.Context, schema TableSchema) (map[int64]struct{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		quoteIdentifier(schema.KeyColumn), quoteIdentifier(schema.Table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.SQLError("Failed to fetch existing keys", query, err)
	}
	defer rows.Close()

	keys := make(map[int64]struct{})
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResultParsing, "Failed to scan key")
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.SQLError("Failed reading existing keys", query, err)
	}
	return keys, nil
}

// CreateStaging makes a session-scoped empty clone of the target table and
// returns its name. The timestamp suffix keeps concurrent sessions apart.
func (s *SQLStore) CreateStaging(ctx context.Context, schema TableSchema) (string, error) {
	staging := fmt.Sprintf("TEMP_%s_%s", schema.Table, s.stagingSeq())
	query := schema.CreateStagingSQL(staging)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStagingFailed,
			"Failed to create staging table").WithContext("staging", staging)
	}
	return staging, nil
}

// StageRows inserts the batch into the staging table in chunks.
func (s *SQLStore) StageRows(ctx context.Context, schema TableSchema, staging string, rows []Row) error {
	stagingSchema := schema
	stagingSchema.Table = staging

	for start := 0; start < len(rows); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := stagingSchema.InsertSQL(len(chunk))
		args := flattenRows(chunk)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeStagingFailed,
				"Failed to stage rows").
				WithContext("staging", staging).
				WithContext("offset", start)
		}
	}

	s.log.WithFields(logrus.Fields{
		"staging": staging,
		"rows":    len(rows),
	}).Debug("Rows staged")
	return nil
}

// Merge folds the staging table into the target.
func (s *SQLStore) Merge(ctx context.Context, schema TableSchema, staging string) error {
	query := schema.MergeSQL(staging)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeMergeFailed,
			"Merge into target failed").
			WithContext("table", schema.Table).
			WithContext("staging", staging).
			AsRecoverable()
	}
	return nil
}

// DropStaging removes the staging table. Session temporaries disappear on
// disconnect anyway, so failures here are not fatal to the load.
func (s *SQLStore) DropStaging(ctx context.Context, staging string) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(staging))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return apperrors.SQLError("Failed to drop staging table", query, err)
	}
	return nil
}

// DeleteByKeys removes one batch of keys with a single statement. Callers
// are responsible for splitting large key sets into batches first.
func (s *SQLStore) DeleteByKeys(ctx context.Context, schema TableSchema, keys []int64) error {
	if len(keys) == 0 {
		return nil
	}
	query := schema.DeleteSQL(len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.SQLError("Failed to delete keys", query, err).
			WithContext("keys", len(keys))
	}
	return nil
}

// InsertRows appends the rows to the target table in chunks.
func (s *SQLStore) InsertRows(ctx context.Context, schema TableSchema, rows []Row) error {
	for start := 0; start < len(rows); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := schema.InsertSQL(len(chunk))
		if _, err := s.db.ExecContext(ctx, query, flattenRows(chunk)...); err != nil {
			return apperrors.SQLError("Failed to insert rows", query, err).
				WithContext("table", schema.Table).
				WithContext("offset", start)
		}
	}
	return nil
}

func flattenRows(rows []Row) []interface{} {
	if len(rows) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		args = append(args, row...)
	}
	return args
}
