// internal/audit/audit.go
//
// Submission attempt log.
//
// Context
// -------
// Operators want to know how many respondents hit a duplicate, lost their
// connection, or gave up after validation errors, none of which reaches the
// backend.  Every terminal phase of a submission attempt is written as one
// row:
//
//	submission_attempt (id PK, strategy, result, field, phone_suffix,
//	                    device, country, created_at)
//
// No personal data is stored beyond the last four phone digits.
//
// Notes
// -----
// • The log is optional.  Without a DSN the service records into Nop.
// • Hook never blocks the respondent on a slow database: the row is built
//   in line, then written from its own goroutine under writeTimeout.
//   Failures are only logged.
// • Oxford commas, two spaces after periods.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/pesquisa/internal/requestinfo"
	"github.com/yanizio/pesquisa/internal/submission"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Schema creates the attempt table.
const Schema = `CREATE TABLE IF NOT EXISTS submission_attempt (
    id           CHAR(36)    NOT NULL PRIMARY KEY,
    strategy     VARCHAR(16) NOT NULL,
    result       VARCHAR(32) NOT NULL,
    field        VARCHAR(16) NOT NULL DEFAULT '',
    phone_suffix CHAR(4)     NOT NULL DEFAULT '',
    device       VARCHAR(16) NOT NULL DEFAULT '',
    country      CHAR(2)     NOT NULL DEFAULT '',
    created_at   DATETIME    NOT NULL,
    KEY idx_attempt_created (created_at)
)`

// writeTimeout bounds one insert from the hook.
const writeTimeout = 2 * time.Second

// Attempt is one row.
type Attempt struct {
	ID          string    `db:"id"`
	Strategy    string    `db:"strategy"`
	Result      string    `db:"result"`
	Field       string    `db:"field"`
	PhoneSuffix string    `db:"phone_suffix"`
	Device      string    `db:"device"`
	Country     string    `db:"country"`
	CreatedAt   time.Time `db:"created_at"`
}

// Recorder persists attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Nop discards every attempt.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Attempt) error { return nil }

// Store is the MySQL recorder.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open pool.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Migrate creates the table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Record implements Recorder.
func (s *Store) Record(ctx context.Context, a Attempt) error {
	const q = `INSERT INTO submission_attempt (id, strategy, result, field, phone_suffix, device, country, created_at) VALUES (:id, :strategy, :result, :field, :phone_suffix, :device, :country, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, a)
	return err
}

// Count is a result tally.
type Count struct {
	Result string `db:"result"`
	Total  int    `db:"total"`
}

// CountSince tallies attempts by result since t, largest first.
func (s *Store) CountSince(ctx context.Context, t time.Time) ([]Count, error) {
	const q = `SELECT result, COUNT(*) AS total FROM submission_attempt WHERE created_at >= ? GROUP BY result ORDER BY total DESC`
	var out []Count
	if err := s.db.SelectContext(ctx, &out, q, t); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Controller hook
// -----------------------------------------------------------------------------

// Hook turns terminal controller transitions into attempt rows.
func Hook(rec Recorder) submission.Hook {
	return func(ctx context.Context, t submission.Transition) {
		if !t.To.Terminal() {
			return
		}
		a := FromTransition(t, requestinfo.FromContext(ctx))
		bg := context.WithoutCancel(ctx)

		go func() {
			wctx, cancel := context.WithTimeout(bg, writeTimeout)
			defer cancel()
			if err := rec.Record(wctx, a); err != nil {
				zap.S().Warnw("audit write failed", "result", a.Result, "err", err)
			}
		}()
	}
}

// FromTransition builds the row for a terminal transition.  info may be nil.
func FromTransition(t submission.Transition, info *requestinfo.RequestInfo) Attempt {
	a := Attempt{
		ID:          uuid.NewString(),
		Strategy:    t.Strategy,
		Result:      t.To.String(),
		PhoneSuffix: suffix(t.Record.PhoneDigits(), 4),
		CreatedAt:   time.Now().UTC(),
	}
	if t.Err != nil {
		switch t.Err.Field {
		case survey.FieldPhone:
			a.Field = "whatsapp"
		case survey.FieldNationalID:
			a.Field = "cpf"
		}
	}
	if info != nil {
		a.Device = info.UA.Device
		a.Country = info.Geo.CountryISO
	}
	return a
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
