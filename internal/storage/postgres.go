package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/trend_radar/internal/config"
	"github.com/iWorld-y/trend_radar/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trend_runs (
	id         SERIAL PRIMARY KEY,
	country    VARCHAR(8) NOT NULL,
	query      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS trend_explanations (
	id          SERIAL PRIMARY KEY,
	run_id      INTEGER NOT NULL REFERENCES trend_runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	term        TEXT NOT NULL,
	explanation TEXT NOT NULL
);`

// Storage 将每次请求的解读结果写入 PostgreSQL
type Storage struct {
	db *sql.DB
}

// DSN 生成 lib/pq 连接串
func DSN(cfg config.DBConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Name)
}

// NewStorage 连接数据库并创建表
func NewStorage(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRun 在一个事务内保存一次请求及其全部解读
func (s *Storage) SaveRun(ctx context.Context, code model.CountryCode, query string, exps *model.Explanations) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				err = fmt.Errorf("%w: %v", err, rerr)
			}
		}
	}()

	var runID int
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO trend_runs (country, query) VALUES ($1, $2) RETURNING id`,
		string(code), query,
	).Scan(&runID); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trend_explanations (run_id, position, term, explanation) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, term := range exps.Terms() {
		text, _ := exps.Get(term)
		if _, err = stmt.ExecContext(ctx, runID, i, string(term), text); err != nil {
			return fmt.Errorf("insert explanation [%s]: %w", term, err)
		}
	}

	return tx.Commit()
}
