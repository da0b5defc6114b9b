package ai

import (
	"time"

	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/setup"
)

// Session is one study block proposed by the model.
type Session struct {
	Date        string `json:"date" jsonschema:"description=Day of the session as YYYY-MM-DD"`
	Start       string `json:"start" jsonschema:"description=Start time as HH:MM"`
	End         string `json:"end" jsonschema:"description=End time as HH:MM"`
	Module      string `json:"module" jsonschema:"description=Module or course the session belongs to"`
	Topic       string `json:"topic" jsonschema:"description=Concrete topic block to study"`
	Description string `json:"description" jsonschema:"description=Short actionable steps for the session"`
}

// planResponse wraps the sessions so the schema root is an object.
type planResponse struct {
	Sessions []Session `json:"sessions"`
}

// PlanRequest carries everything a provider needs to draft a plan.
type PlanRequest struct {
	Start       time.Time
	End         time.Time
	Assessments []setup.Due
	FreeSlots   []planning.Record
	BusyTimes   []setup.BusyTime
	Absences    []setup.Absence
	Preferences setup.Preferences
	Strategies  []string
	Locale      planning.Locale
	// Notes is free text the student adds for this run.
	Notes string
}
