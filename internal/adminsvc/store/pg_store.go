package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const pgColumns = `id::text, COALESCE(variable_1, ''), COALESCE(variable_2, ''),
        created_at, COALESCE(updated_at, created_at)`

// querier is the part of *pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore reads and writes the variables table over a direct postgres
// connection.
type PgStore struct {
	db    querier
	table string
}

func NewPgStore(db *pgxpool.Pool, table string) *PgStore {
	if table == "" {
		table = "variables"
	}
	return &PgStore{db: db, table: pgx.Identifier{table}.Sanitize()}
}

func (r *PgStore) FetchLatest(ctx context.Context) (*models.Variables, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s
        FROM %s
        ORDER BY created_at DESC
        LIMIT 1
    `, pgColumns, r.table))

	v, err := latestFromRow(row)
	if err != nil {
		log.Errorf("error [FetchLatest] %v", err)
		return nil, backendErr("FetchLatest", err)
	}
	return v, nil
}

// latestFromRow scans a single row; no row means an empty table.
func latestFromRow(row pgx.Row) (*models.Variables, error) {
	v := &models.Variables{}
	err := scanVariables(row, v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PgStore) Insert(ctx context.Context, in models.VariablesInput) (*models.Variables, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (variable_1, variable_2)
        VALUES ($1, $2)
        RETURNING %s
    `, r.table, pgColumns), in.VariableOne, in.VariableTwo)

	v := &models.Variables{}
	if err := scanVariables(row, v); err != nil {
		log.Errorf("error [Insert] %v", err)
		return nil, backendErr("Insert", err)
	}
	return v, nil
}

func (r *PgStore) FetchAll(ctx context.Context) ([]models.Variables, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM %s
        ORDER BY created_at DESC
    `, pgColumns, r.table))
	if err != nil {
		log.Errorf("error [FetchAll] %v", err)
		return nil, backendErr("FetchAll", err)
	}
	defer rows.Close()

	list := []models.Variables{}
	for rows.Next() {
		var v models.Variables
		if err := scanVariables(rows, &v); err != nil {
			return nil, backendErr("FetchAll", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("FetchAll", err)
	}
	return list, nil
}

func scanVariables(row pgx.Row, v *models.Variables) error {
	return row.Scan(
		&v.ID,
		&v.VariableOne,
		&v.VariableTwo,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
}
