package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the raw parameterized statements over the two tables.
// Amounts travel as decimal strings, dates as ISO-8601 strings.
type Queries struct {
	db DBTX
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Transaction struct {
	ID          int64
	UserID      int64
	Date        string
	Kind        string
	Amount      string
	Description string
	CreatedAt   time.Time
}

const createUser = `
INSERT INTO users (username, password_hash)
VALUES (?, ?)
RETURNING id, username, password_hash, created_at
`

type CreateUserParams struct {
	Username     string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.PasswordHash)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, username, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByUsername = `
SELECT id, username, password_hash, created_at FROM users WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const createTransaction = `
INSERT INTO transactions (user_id, date, kind, amount, description)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, date, kind, amount, description, created_at
`

type CreateTransactionParams struct {
	UserID      int64
	Date        string
	Kind        string
	Amount      string
	Description string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.Date, arg.Kind, arg.Amount, arg.Description)
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Kind, &t.Amount, &t.Description, &t.CreatedAt)
	return t, err
}

const listTransactionsByUser = `
SELECT id, user_id, date, kind, amount, description, created_at
FROM transactions
WHERE user_id = ?
ORDER BY date, id
`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Kind, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const countTransactionsByUser = `
SELECT COUNT(*) FROM transactions WHERE user_id = ?
`

func (q *Queries) CountTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactionsByUser, userID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
