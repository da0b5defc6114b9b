package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/plan"
	"github.com/christopherklint97/studyr/internal/planning"
)

// Plan is a saved study plan and the context it was generated in.
type Plan struct {
	ID            string
	CreatedAt     time.Time
	Start         time.Time
	End           time.Time
	Provider      string
	Model         string
	PromptVersion string
	Notes         string
	FreeSlots     []planning.Record
	Sessions      []Session
	SessionCount  int
}

// Session is a stored study session.
type Session struct {
	ID     int64
	PlanID string
	ai.Session
	StartsAt time.Time
	Notified bool
}

// SavePlan stores p with its sessions in one transaction and returns the
// new plan ID. Session start times are interpreted in loc.
func (db *DB) SavePlan(p *Plan, sessions []ai.Session, loc *time.Location) (string, error) {
	slots, err := json.Marshal(p.FreeSlots)
	if err != nil {
		return "", fmt.Errorf("encoding free slots: %w", err)
	}
	if p.FreeSlots == nil {
		slots = []byte("[]")
	}

	id := uuid.NewString()
	created := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO plans (id, created_at, start_date, end_date, provider, model, prompt_version, notes, free_slots)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, created.Format(timeLayout),
		p.Start.Format(planning.DateLayout), p.End.Format(planning.DateLayout),
		p.Provider, p.Model, p.PromptVersion, p.Notes, string(slots),
	)
	if err != nil {
		return "", fmt.Errorf("inserting plan: %w", err)
	}

	for i, s := range sessions {
		startsAt, err := plan.Start(s, loc)
		if err != nil {
			return "", fmt.Errorf("session %d: %w", i+1, err)
		}
		_, err = tx.Exec(
			`INSERT INTO sessions (plan_id, date, start_time, end_time, module, topic, description, starts_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, s.Date, s.Start, s.End, s.Module, s.Topic, s.Description,
			startsAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return "", fmt.Errorf("inserting session %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing plan: %w", err)
	}
	p.ID = id
	p.CreatedAt = created
	return id, nil
}

const planColumns = `p.id, p.created_at, p.start_date, p.end_date, p.provider, p.model, p.prompt_version, p.notes, p.free_slots,
	(SELECT COUNT(*) FROM sessions s WHERE s.plan_id = p.id)`

// LatestPlan returns the most recent plan with its sessions, or nil when
// nothing has been saved yet.
func (db *DB) LatestPlan() (*Plan, error) {
	plans, err := db.queryPlans(`SELECT `+planColumns+` FROM plans p ORDER BY p.created_at DESC, p.rowid DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	p := &plans[0]
	if p.Sessions, err = db.planSessions(p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// PlanByID returns the plan with its sessions or ErrNotFound.
func (db *DB) PlanByID(id string) (*Plan, error) {
	plans, err := db.queryPlans(`SELECT `+planColumns+` FROM plans p WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	p := &plans[0]
	if p.Sessions, err = db.planSessions(p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlans returns up to limit plans, newest first, without sessions.
func (db *DB) ListPlans(limit int) ([]Plan, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryPlans(`SELECT `+planColumns+` FROM plans p ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`, limit)
}

func (db *DB) DeletePlan(id string) error {
	res, err := db.Exec("DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return nil
}

// SessionsBetween returns the sessions of the latest plan starting in
// [from, to), earliest first.
func (db *DB) SessionsBetween(from, to time.Time) ([]Session, error) {
	return db.querySessions(
		`SELECT id, plan_id, date, start_time, end_time, module, topic, description, starts_at, notified
		 FROM sessions
		 WHERE plan_id = (SELECT id FROM plans ORDER BY created_at DESC, rowid DESC LIMIT 1)
		   AND starts_at >= ? AND starts_at < ?
		 ORDER BY starts_at ASC`,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout),
	)
}

func (db *DB) MarkNotified(id int64) error {
	_, err := db.Exec("UPDATE sessions SET notified = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking session %d notified: %w", id, err)
	}
	return nil
}

func (db *DB) planSessions(planID string) ([]Session, error) {
	return db.querySessions(
		`SELECT id, plan_id, date, start_time, end_time, module, topic, description, starts_at, notified
		 FROM sessions
		 WHERE plan_id = ?
		 ORDER BY starts_at ASC, id ASC`,
		planID,
	)
}

func (db *DB) queryPlans(query string, args ...any) ([]Plan, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		var created, start, end, slots string
		if err := rows.Scan(
			&p.ID, &created, &start, &end, &p.Provider, &p.Model, &p.PromptVersion, &p.Notes, &slots, &p.SessionCount,
		); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		if t, err := time.Parse(timeLayout, created); err == nil {
			p.CreatedAt = t
		}
		if t, err := time.Parse(planning.DateLayout, start); err == nil {
			p.Start = t
		}
		if t, err := time.Parse(planning.DateLayout, end); err == nil {
			p.End = t
		}
		if err := json.Unmarshal([]byte(slots), &p.FreeSlots); err != nil {
			return nil, fmt.Errorf("decoding free slots of plan %s: %w", p.ID, err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (db *DB) querySessions(query string, args ...any) ([]Session, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startsAt string
		var description sql.NullString
		if err := rows.Scan(
			&s.ID, &s.PlanID, &s.Date, &s.Start, &s.End, &s.Module, &s.Topic, &description, &startsAt, &s.Notified,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.Description = description.String
		if t, err := time.Parse(timeLayout, startsAt); err == nil {
			s.StartsAt = t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AISessions strips the storage fields.
func AISessions(stored []Session) []ai.Session {
	out := make([]ai.Session, len(stored))
	for i, s := range stored {
		out[i] = s.Session
	}
	return out
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
