package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/voxcart/voxcart/internal/model"
)

// ErrTurnNotFound is returned when a turn id has no row.
var ErrTurnNotFound = eris.New("store: turn not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	utterance  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'processing',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS purchases (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	turn_id    TEXT,
	product    TEXT NOT NULL,
	method     TEXT NOT NULL,
	cart_id    TEXT,
	total      TEXT NOT NULL,
	tx_ref     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_turns_status ON turns(status);
CREATE INDEX IF NOT EXISTS idx_purchases_session_id ON purchases(session_id);
CREATE INDEX IF NOT EXISTS idx_purchases_method ON purchases(method);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTurn(ctx context.Context, sessionID, utterance string) (*model.Turn, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, utterance, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, utterance, string(model.TurnStatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert turn")
	}

	return &model.Turn{
		ID:        id,
		SessionID: sessionID,
		Utterance: utterance,
		Status:    model.TurnStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateTurnStatus(ctx context.Context, turnID string, status model.TurnStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE turns SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), turnID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update turn status %s", turnID)
	}
	return checkRowsAffected(res, turnID)
}

func (s *SQLiteStore) CompleteTurn(ctx context.Context, turnID string, status model.TurnStatus, result *model.TurnRecord) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal turn result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE turns SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(status), string(resultJSON), time.Now().UTC(), turnID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete turn %s", turnID)
	}
	return checkRowsAffected(res, turnID)
}

func (s *SQLiteStore) GetTurn(ctx context.Context, turnID string) (*model.Turn, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, utterance, status, result, created_at, updated_at FROM turns WHERE id = ?`,
		turnID,
	)
	return scanTurn(row)
}

func (s *SQLiteStore) ListTurns(ctx context.Context, filter TurnFilter) ([]model.Turn, error) {
	query := `SELECT id, session_id, utterance, status, result, created_at, updated_at FROM turns WHERE 1=1`
	var args []any

	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list turns")
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *turn)
	}
	return turns, eris.Wrap(rows.Err(), "sqlite: list turns iterate")
}

func (s *SQLiteStore) RecordPurchase(ctx context.Context, p *model.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	productJSON, err := json.Marshal(p.Product)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal purchase product")
	}
	totalJSON, err := json.Marshal(p.Total)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal purchase total")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO purchases (id, session_id, turn_id, product, method, cart_id, total, tx_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, p.TurnID, string(productJSON), string(p.Method), p.CartID, string(totalJSON), p.TxRef, p.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert purchase")
}

func (s *SQLiteStore) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]model.Purchase, error) {
	query := `SELECT id, session_id, turn_id, product, method, cart_id, total, tx_ref, created_at FROM purchases WHERE 1=1`
	var args []any

	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Method != "" {
		query += ` AND method = ?`
		args = append(args, string(filter.Method))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list purchases")
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var turnID, cartID, txRef sql.NullString
		var productJSON, totalJSON string

		if err := rows.Scan(&p.ID, &p.SessionID, &turnID, &productJSON, &p.Method, &cartID, &totalJSON, &txRef, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchase")
		}
		p.TurnID = turnID.String
		p.CartID = cartID.String
		p.TxRef = txRef.String
		if err := json.Unmarshal([]byte(productJSON), &p.Product); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal purchase product")
		}
		if err := json.Unmarshal([]byte(totalJSON), &p.Total); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal purchase total")
		}
		purchases = append(purchases, p)
	}
	return purchases, eris.Wrap(rows.Err(), "sqlite: list purchases iterate")
}

// helpers

func checkRowsAffected(res sql.Result, turnID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrTurnNotFound, "turn %s", turnID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTurn(row scannable) (*model.Turn, error) {
	var t model.Turn
	var resultJSON sql.NullString

	err := row.Scan(&t.ID, &t.SessionID, &t.Utterance, &t.Status, &resultJSON, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrTurnNotFound, "sqlite: get turn")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan turn")
	}

	if resultJSON.Valid {
		t.Result = &model.TurnRecord{}
		if err := json.Unmarshal([]byte(resultJSON.String), t.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal turn result")
		}
	}
	return &t, nil
}
