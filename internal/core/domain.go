package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// KindTrade is the only transaction kind with win/loss semantics on the
// dashboard. Any other kind still counts toward daily and cumulative totals.
const KindTrade = "trade"

type (
	// Date is a calendar date without a time component, stored and
	// exchanged as an ISO-8601 string (YYYY-MM-DD).
	Date struct {
		time.Time
	}

	// Transaction is a single dated, signed cash-flow record owned by one
	// user. Positive amounts are credits, negative amounts are debits.
	Transaction struct {
		ID          int64
		UserID      int64
		Date        Date
		Kind        string
		Amount      decimal.Decimal
		Description string
	}

	// User owns zero or more Transactions. The password is only ever held
	// as a bcrypt hash.
	User struct {
		ID           int64
		Username     string
		PasswordHash string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyKind       = errors.New("empty kind")
	ErrEmptyUsername   = errors.New("empty username")
	ErrEmptyPassword   = errors.New("empty password")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrSessionNotFound = errors.New("session not found")
)

const dateLayout = "2006-01-02"

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD. Lexical order of this form equals
// chronological order, which the report builder relies on for sorting.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Kind) == "" {
		return ErrEmptyKind
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// IsTrade reports whether the transaction participates in win/loss
// statistics. This is an explicit tag match, not inferred from data.
func (t Transaction) IsTrade() bool {
	return t.Kind == KindTrade
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > 64 {
		return errors.New("username too long (max 64 characters)")
	}
	return nil
}
