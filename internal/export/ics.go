// Package export renders study plans as calendar, spreadsheet and PDF
// documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/plan"
)

const productID = "-//studyr//study plan//EN"

var ErrNothingToExport = errors.New("no exportable sessions")

// sessionNamespace scopes session UIDs. Re-exporting a plan yields the
// same UIDs.
var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/christopherklint97/studyr/session"))

// SessionUID is stable for a given date, time slot and module.
func SessionUID(s ai.Session) string {
	key := s.Date + "|" + s.Start + "|" + s.End + "|" + s.Module
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String() + "@studyr"
}

// ICS writes one VEVENT per session. Session clock times are interpreted
// in loc. Sessions with unparsable times are skipped and counted in the
// returned total.
func ICS(w io.Writer, sessions []ai.Session, loc *time.Location) (skipped int, err error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := time.Now().UTC()
	for _, s := range sessions {
		start, err := plan.Start(s, loc)
		if err != nil {
			skipped++
			continue
		}
		end, err := plan.End(s, loc)
		if err != nil || !end.After(start) {
			skipped++
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, SessionUID(s))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(ical.PropSummary, Title(s))
		if s.Description != "" {
			event.Props.SetText(ical.PropDescription, s.Description)
		}
		event.Props.SetText(ical.PropCategories, s.Module)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return skipped, ErrNothingToExport
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return skipped, fmt.Errorf("encoding calendar: %w", err)
	}
	return skipped, nil
}

// Title is "Module: Topic", or just the module when no topic is set.
func Title(s ai.Session) string {
	if s.Topic == "" {
		return s.Module
	}
	return s.Module + ": " + s.Topic
}
