package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/planning"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "studyr.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPlan() *Plan {
	return &Plan{
		Start:         time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2025, time.November, 9, 0, 0, 0, 0, time.UTC),
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		PromptVersion: "few-shot-cot",
		Notes:         "mehr Statistik",
		FreeSlots: []planning.Record{
			{Date: "2025-11-03", Day: "Montag", Start: "14:00", End: "18:00", Hours: 4},
		},
	}
}

var testSessions = []ai.Session{
	{Date: "2025-11-04", Start: "09:00", End: "10:00", Module: "Marketing", Topic: "4P"},
	{Date: "2025-11-03", Start: "14:00", End: "15:30", Module: "Statistik", Topic: "Regression", Description: "Aufgaben 1-3"},
}

func TestSavePlanAndLatest(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestPlan()
	if err != nil || latest != nil {
		t.Fatalf("LatestPlan on empty db = %v, %v", latest, err)
	}

	p := testPlan()
	id, err := db.SavePlan(p, testSessions, time.UTC)
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if id == "" || p.ID != id {
		t.Errorf("id = %q, plan id = %q", id, p.ID)
	}

	latest, err = db.LatestPlan()
	if err != nil {
		t.Fatalf("LatestPlan: %v", err)
	}
	if latest.ID != id || latest.Notes != "mehr Statistik" || latest.Provider != "openai" {
		t.Errorf("latest = %+v", latest)
	}
	if !latest.Start.Equal(p.Start) || !latest.End.Equal(p.End) {
		t.Errorf("window = %v..%v", latest.Start, latest.End)
	}
	if len(latest.FreeSlots) != 1 || latest.FreeSlots[0].Day != "Montag" {
		t.Errorf("free slots = %+v", latest.FreeSlots)
	}
	if len(latest.Sessions) != 2 || latest.SessionCount != 2 {
		t.Fatalf("sessions = %d, count = %d", len(latest.Sessions), latest.SessionCount)
	}
	first := latest.Sessions[0]
	if first.Module != "Statistik" || first.Description != "Aufgaben 1-3" || first.PlanID != id {
		t.Errorf("first session = %+v", first)
	}
	if want := time.Date(2025, time.November, 3, 14, 0, 0, 0, time.UTC); !first.StartsAt.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", first.StartsAt, want)
	}
}

func TestSavePlanRollsBackInvalidSession(t *testing.T) {
	db := openTestDB(t)
	bad := append([]ai.Session{}, testSessions...)
	bad = append(bad, ai.Session{Date: "bogus", Start: "10:00", End: "11:00", Module: "X", Topic: "Y"})

	if _, err := db.SavePlan(testPlan(), bad, time.UTC); err == nil {
		t.Fatal("expected error for invalid session")
	}
	plans, err := db.ListPlans(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 0 {
		t.Errorf("plans after failed save = %d, want 0", len(plans))
	}
}

func TestPlanByIDAndList(t *testing.T) {
	db := openTestDB(t)

	first, err := db.SavePlan(testPlan(), testSessions, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.SavePlan(testPlan(), testSessions[:1], time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	plans, err := db.ListPlans(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 || plans[0].ID != second || plans[1].ID != first {
		t.Fatalf("ListPlans order = %+v", plans)
	}
	if plans[0].SessionCount != 1 || plans[0].Sessions != nil {
		t.Errorf("list entry = %+v", plans[0])
	}

	p, err := db.PlanByID(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(p.Sessions))
	}

	if _, err := db.PlanByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PlanByID(missing) error = %v", err)
	}

	if err := db.DeletePlan(second); err != nil {
		t.Fatal(err)
	}
	if err := db.DeletePlan(second); !IsNotFound(err) {
		t.Errorf("second delete error = %v", err)
	}
	latest, err := db.LatestPlan()
	if err != nil || latest.ID != first {
		t.Errorf("latest after delete = %+v, %v", latest, err)
	}
}

func TestSessionsBetweenAndNotified(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.SavePlan(testPlan(), testSessions, time.UTC); err != nil {
		t.Fatal(err)
	}

	from := time.Date(2025, time.November, 3, 13, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.November, 3, 15, 0, 0, 0, time.UTC)
	got, err := db.SessionsBetween(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Module != "Statistik" || got[0].Notified {
		t.Fatalf("SessionsBetween = %+v", got)
	}

	if err := db.MarkNotified(got[0].ID); err != nil {
		t.Fatal(err)
	}
	got, err = db.SessionsBetween(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Notified {
		t.Error("session not marked notified")
	}

	// the window end is exclusive
	got, err = db.SessionsBetween(from, from.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("sessions at exclusive end = %d", len(got))
	}
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetState("missing")
	if err != nil || v != "" {
		t.Errorf("GetState(missing) = %q, %v", v, err)
	}
	if err := db.SetState("k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("k", "two"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetState("k"); v != "two" {
		t.Errorf("GetState = %q, want two", v)
	}
}

func TestAISessions(t *testing.T) {
	stored := []Session{{ID: 1, Session: testSessions[0]}}
	if got := AISessions(stored); len(got) != 1 || got[0] != testSessions[0] {
		t.Errorf("AISessions = %+v", got)
	}
}
