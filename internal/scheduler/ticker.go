package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/studyr/internal/config"
	"github.com/christopherklint97/studyr/internal/export"
	"github.com/christopherklint97/studyr/internal/store"
)

var ErrDisabled = errors.New("notifications are disabled in config")

// SessionStore is the part of the store the scheduler needs.
type SessionStore interface {
	SessionsBetween(from, to time.Time) ([]store.Session, error)
	MarkNotified(id int64) error
}

// Notifier delivers one reminder.
type Notifier func(title, message string) error

type Scheduler struct {
	db       SessionStore
	lead     time.Duration
	interval time.Duration
	enabled  bool
	notify   Notifier
	now      func() time.Time
	out      io.Writer
	pidPath  string
	logger   *slog.Logger
}

func New(cfg *config.Config, db SessionStore, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lead := cfg.Notifications.LeadMinutes
	if lead <= 0 {
		lead = 10
	}
	return &Scheduler{
		db:       db,
		lead:     time.Duration(lead) * time.Minute,
		interval: time.Minute,
		enabled:  cfg.Notifications.Enabled,
		notify:   SendNotification,
		now:      time.Now,
		out:      os.Stdout,
		logger:   logger,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	if !s.enabled {
		return ErrDisabled
	}
	if err := s.writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer s.removePID()

	fmt.Fprintf(s.out, "Reminders started (lead time: %s)\n", s.lead)

	// catch sessions that start right away
	s.tick(s.now())

	for {
		nextTick := nextAlignedTick(s.now(), s.interval)

		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\nReminders stopped.")
			return nil
		case <-time.After(time.Until(nextTick)):
		}

		s.tick(s.now())
	}
}

func (s *Scheduler) tick(now time.Time) {
	n, err := s.Check(now)
	if err != nil {
		s.logger.Error("checking upcoming sessions", "error", err)
		return
	}
	if n > 0 {
		fmt.Fprintf(s.out, "%s  sent %d reminder(s)\n", now.Format("15:04"), n)
	}
}

// Check notifies about sessions of the latest plan that start within the
// lead time and have not been announced yet. It returns the number of
// reminders sent.
func (s *Scheduler) Check(now time.Time) (int, error) {
	sessions, err := s.db.SessionsBetween(now.Add(-s.interval), now.Add(s.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sess := range sessions {
		if sess.Notified {
			continue
		}
		if err := s.notify("studyr", reminderText(sess, now)); err != nil {
			s.logger.Warn("sending notification failed", "session", sess.ID, "error", err)
			continue
		}
		if err := s.db.MarkNotified(sess.ID); err != nil {
			return sent, err
		}
		s.logger.Debug("reminder sent", "session", sess.ID, "module", sess.Module, "starts_at", sess.StartsAt)
		sent++
	}
	return sent, nil
}

func reminderText(sess store.Session, now time.Time) string {
	var b strings.Builder
	mins := int(sess.StartsAt.Sub(now).Round(time.Minute).Minutes())
	switch {
	case mins <= 0:
		b.WriteString("Jetzt: ")
	default:
		fmt.Fprintf(&b, "In %d Min. (%s): ", mins, sess.Start)
	}
	b.WriteString(export.Title(sess.Session))
	if sess.Description != "" {
		b.WriteString("\n")
		b.WriteString(sess.Description)
	}
	return b.String()
}

func nextAlignedTick(now time.Time, interval time.Duration) time.Time {
	mins := int(interval.Minutes())
	if mins <= 0 {
		mins = 1
	}

	currentMinute := now.Minute()
	nextMinute := ((currentMinute / mins) + 1) * mins

	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	next = next.Add(time.Duration(nextMinute) * time.Minute)

	return next
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "studyr.pid"), nil
}

func (s *Scheduler) path() (string, error) {
	if s.pidPath != "" {
		return s.pidPath, nil
	}
	return pidPath()
}

func (s *Scheduler) writePID() error {
	path, err := s.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *Scheduler) removePID() {
	if path, err := s.path(); err == nil {
		os.Remove(path)
	}
}

// ReadPID returns the process ID of the running reminder loop.
func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}
	return readPID(path)
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running scheduler found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
