package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// Event represents a parsed calendar event.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
	AllDay    bool
	// Rule is the event's recurrence rule, nil for one-off events.
	Rule *rrule.ROption
}

// Recurring reports whether the event repeats.
func (e Event) Recurring() bool {
	return e.Rule != nil
}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given time window. Recurring
// events are kept when their series reaches into the window.
func Fetch(ctx context.Context, source string, windowStart, windowEnd time.Time) ([]Event, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return Parse(r, windowStart, windowEnd)
}

// Parse decodes events from r. Floating times are read in the location of
// windowStart.
func Parse(r io.Reader, windowStart, windowEnd time.Time) ([]Event, error) {
	loc := windowStart.Location()
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(loc)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(loc)
			if err != nil || end.IsZero() {
				end = start
			}
			summary, _ := event.Props.Text(ical.PropSummary)
			if summary == "" {
				continue
			}

			e := Event{Summary: summary, StartTime: start, EndTime: end}
			if prop := event.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
				e.AllDay = true
				if !end.After(start) {
					e.EndTime = start.AddDate(0, 0, 1)
				}
			}
			if prop := event.Props.Get(ical.PropRecurrenceRule); prop != nil {
				opt, err := rrule.StrToROptionInLocation(prop.Value, loc)
				if err != nil {
					continue
				}
				opt.Dtstart = start
				e.Rule = opt
			}

			if e.overlaps(windowStart, windowEnd) {
				events = append(events, e)
			}
		}
	}

	return events, nil
}

func (e Event) overlaps(from, to time.Time) bool {
	if e.Rule == nil {
		return e.StartTime.Before(to) && e.EndTime.After(from)
	}
	if !e.StartTime.Before(to) {
		return false
	}
	return e.Rule.Until.IsZero() || !e.Rule.Until.Before(from)
}
