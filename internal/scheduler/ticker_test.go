package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/config"
	"github.com/christopherklint97/studyr/internal/store"
)

type fakeStore struct {
	sessions []store.Session
	from, to time.Time
	marked   []int64
}

func (f *fakeStore) SessionsBetween(from, to time.Time) ([]store.Session, error) {
	f.from, f.to = from, to
	var out []store.Session
	for _, s := range f.sessions {
		if !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotified(id int64) error {
	f.marked = append(f.marked, id)
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions[i].Notified = true
		}
	}
	return nil
}

func testScheduler(db SessionStore, notify Notifier) *Scheduler {
	cfg := config.DefaultConfig()
	s := New(&cfg, db, nil)
	s.notify = notify
	s.out = io.Discard
	return s
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, time.November, 3, 13, 55, 0, 0, time.UTC)
	db := &fakeStore{sessions: []store.Session{
		{ID: 1, Session: ai.Session{Start: "14:00", Module: "Statistik", Topic: "Regression"}, StartsAt: now.Add(5 * time.Minute)},
		{ID: 2, Session: ai.Session{Start: "14:00", Module: "Marketing", Topic: "4P"}, StartsAt: now.Add(5 * time.Minute), Notified: true},
		{ID: 3, Session: ai.Session{Start: "16:00", Module: "Accounting"}, StartsAt: now.Add(2 * time.Hour)},
	}}

	var messages []string
	s := testScheduler(db, func(title, message string) error {
		if title != "studyr" {
			t.Errorf("title = %q", title)
		}
		messages = append(messages, message)
		return nil
	})

	n, err := s.Check(now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(db.marked) != 1 || db.marked[0] != 1 {
		t.Fatalf("sent %d, marked %v", n, db.marked)
	}
	if !strings.Contains(messages[0], "In 5 Min. (14:00): Statistik: Regression") {
		t.Errorf("message = %q", messages[0])
	}
	if !db.to.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("lookahead ends at %v, want default lead of 10 minutes", db.to)
	}

	// already notified sessions are not repeated
	n, err = s.Check(now.Add(time.Minute))
	if err != nil || n != 0 {
		t.Errorf("second check = %d, %v", n, err)
	}
}

func TestCheckNotifyFailure(t *testing.T) {
	now := time.Date(2025, time.November, 3, 13, 55, 0, 0, time.UTC)
	db := &fakeStore{sessions: []store.Session{
		{ID: 7, Session: ai.Session{Module: "Statistik"}, StartsAt: now},
	}}
	s := testScheduler(db, func(string, string) error { return errors.New("no display") })

	n, err := s.Check(now)
	if err != nil || n != 0 {
		t.Errorf("Check = %d, %v", n, err)
	}
	if len(db.marked) != 0 {
		t.Error("failed notification must not mark the session")
	}
}

func TestReminderText(t *testing.T) {
	now := time.Date(2025, time.November, 3, 14, 0, 0, 0, time.UTC)
	sess := store.Session{Session: ai.Session{Start: "14:00", Module: "Statistik", Description: "Aufgaben 1-3"}, StartsAt: now}
	got := reminderText(sess, now)
	if got != "Jetzt: Statistik\nAufgaben 1-3" {
		t.Errorf("reminderText = %q", got)
	}
}

func TestNextAlignedTick(t *testing.T) {
	tests := []struct {
		now      time.Time
		interval time.Duration
		want     time.Time
	}{
		{
			now:      time.Date(2025, 11, 3, 13, 55, 30, 0, time.UTC),
			interval: time.Minute,
			want:     time.Date(2025, 11, 3, 13, 56, 0, 0, time.UTC),
		},
		{
			now:      time.Date(2025, 11, 3, 13, 59, 59, 0, time.UTC),
			interval: time.Minute,
			want:     time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC),
		},
		{
			now:      time.Date(2025, 11, 3, 13, 7, 0, 0, time.UTC),
			interval: 15 * time.Minute,
			want:     time.Date(2025, 11, 3, 13, 15, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		if got := nextAlignedTick(tt.now, tt.interval); !got.Equal(tt.want) {
			t.Errorf("nextAlignedTick(%v, %v) = %v, want %v", tt.now, tt.interval, got, tt.want)
		}
	}
}

func TestRunDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Notifications.Enabled = false
	s := New(&cfg, &fakeStore{}, nil)
	if err := s.Run(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Run = %v, want ErrDisabled", err)
	}
}

func TestRunWritesAndRemovesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyr.pid")
	s := testScheduler(&fakeStore{}, func(string, string) error { return nil })
	s.pidPath = path

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if pid, err := readPID(path); err == nil {
			if pid != os.Getpid() {
				t.Errorf("pid = %d, want %d", pid, os.Getpid())
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("PID file was not written")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file not removed")
	}
}

func TestReadPIDInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyr.pid")
	if _, err := readPID(path); err == nil {
		t.Error("expected error for missing file")
	}
	os.WriteFile(path, []byte("abc"), 0644)
	if _, err := readPID(path); err == nil {
		t.Error("expected error for invalid PID")
	}
}
