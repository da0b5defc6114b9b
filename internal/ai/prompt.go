package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/christopherklint97/studyr/internal/planning"
)

type PromptVersion string

const (
	ZeroShot       PromptVersion = "zero-shot"
	FewShot        PromptVersion = "few-shot"
	ChainOfThought PromptVersion = "chain-of-thought"
	FewShotCoT     PromptVersion = "few-shot-cot"
)

var PromptVersions = []PromptVersion{ZeroShot, FewShot, ChainOfThought, FewShotCoT}

// ParsePromptVersion maps a config value to a version. Empty selects
// FewShotCoT.
func ParsePromptVersion(s string) (PromptVersion, error) {
	if s == "" {
		return FewShotCoT, nil
	}
	for _, v := range PromptVersions {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown prompt version %q", s)
}

func (v PromptVersion) fewShot() bool {
	return v == FewShot || v == FewShotCoT
}

func (v PromptVersion) reasoning() bool {
	return v == ChainOfThought || v == FewShotCoT
}

const basePrompt = `You are an experienced study coach for university students.

Goal: build a realistic, efficient study plan covering the whole period up to the last deadline.

Rules:
- Only use the free slots listed by the student. Every session must lie completely inside one free slot. Never invent other times.
- Plan the most urgent assessments first (closest deadlines, highest priority and effort).
- Sessions usually last 45 to 120 minutes. Use slots shorter than 45 minutes only when needed.
- At most 2 to 3 focused sessions per day when possible.
- After a session longer than 90 minutes leave at least 15 minutes before the next one.
- Spread the workload over the whole period instead of cramming before deadlines.
- The final week before a deadline is for intensive revision.
- Match learning activities to the exam format (flash cards for multiple choice, worked exercises for calculation exams, explaining out loud for oral exams, and so on). Never invent exam formats.
- Every session names a concrete module, a clear topic block and short actionable steps.
- Write topic and description in %s.

Output: a JSON object with a "sessions" array. Each entry has the fields date (YYYY-MM-DD), start (HH:MM), end (HH:MM), module, topic and description. Return only JSON, no commentary.`

const reasoningPrompt = `

Work through these steps internally and do not output them:
1. Read the period, assessments, exam formats, free slots and preferences.
2. Rank assessments by urgency and estimate the preparation time each needs.
3. Check whether the free slots cover that time. If not, favour deadlines and priority.
4. Place sessions into free slots, most urgent first, keeping breaks and daily limits.
5. Review: every session inside a free slot, deadlines prepared, descriptions actionable.
Then output only the final JSON.`

const examplesPrompt = `

Example. Period 2025-11-20 to 2025-11-30, Marketing exam on 2025-11-30, weekly Accounting exercises, free slot 2025-11-22 14:00-18:00:
{"sessions": [
  {"date": "2025-11-22", "start": "14:00", "end": "15:30", "module": "Marketing", "topic": "4Ps and positioning", "description": "Read chapters 2-3, mark key concepts and draw an overview of the 4Ps."},
  {"date": "2025-11-22", "start": "15:45", "end": "17:15", "module": "Accounting", "topic": "Balance sheet and income statement", "description": "Solve exercise sheet 4 tasks 1-3 and correct wrong entries against the solution."}
]}

Example. Business Informatics exam on 2025-12-05, free slots 2025-12-03 18:00-20:00 and 2025-12-04 09:00-11:00:
{"sessions": [
  {"date": "2025-12-03", "start": "18:00", "end": "19:30", "module": "Business Informatics", "topic": "Database normalisation", "description": "Work through the 1NF-3NF examples and normalise three tables of your own."},
  {"date": "2025-12-04", "start": "09:00", "end": "10:30", "module": "Business Informatics", "topic": "Process modelling and review", "description": "Redraw the BPMN examples, model two processes and summarise the notation."}
]}`

// SystemPrompt returns the instructions for the given prompt version.
func SystemPrompt(v PromptVersion, l planning.Locale) (string, error) {
	if _, err := ParsePromptVersion(string(v)); err != nil {
		return "", err
	}
	lang := "German"
	if l == planning.LocaleEnglish {
		lang = "English"
	}
	var b strings.Builder
	fmt.Fprintf(&b, basePrompt, lang)
	if v.reasoning() {
		b.WriteString(reasoningPrompt)
	}
	if v.fewShot() {
		b.WriteString(examplesPrompt)
	}
	return b.String(), nil
}

// UserPrompt renders the student's data. Versions with reasoning also get
// busy times and absences as context.
func UserPrompt(v PromptVersion, req PlanRequest) string {
	type assessment struct {
		Title       string   `json:"title"`
		Type        string   `json:"type,omitempty"`
		Deadline    string   `json:"deadline"`
		Module      string   `json:"module,omitempty"`
		Topics      []string `json:"topics,omitempty"`
		Priority    int      `json:"priority"`
		Effort      int      `json:"effort"`
		ExamFormat  string   `json:"exam_format,omitempty"`
		ExamDetails string   `json:"exam_details,omitempty"`
	}
	assessments := make([]assessment, 0, len(req.Assessments))
	for _, a := range req.Assessments {
		assessments = append(assessments, assessment{
			Title:       a.Title,
			Type:        a.Type,
			Deadline:    a.Date.Format(planning.DateLayout),
			Module:      a.Module,
			Topics:      a.Topics,
			Priority:    a.Priority,
			Effort:      a.Effort,
			ExamFormat:  a.ExamFormat,
			ExamDetails: a.ExamDetails,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Study period: %s to %s\n\n",
		req.Start.Format(planning.DateLayout), req.End.Format(planning.DateLayout))
	section(&b, "Assessments (deadlines, priority and effort 1-5)", assessments)
	section(&b, "Free slots (only these may be used)", req.FreeSlots)
	section(&b, "Preferences", req.Preferences)
	if len(req.Strategies) > 0 {
		fmt.Fprintf(&b, "Active learning strategies: %s\n\n", strings.Join(req.Strategies, ", "))
	}
	if v.reasoning() {
		if len(req.Absences) > 0 {
			section(&b, "Absences (no studying possible, the labels give context)", req.Absences)
		}
		if len(req.BusyTimes) > 0 {
			section(&b, "Recurring commitments (use labels as context, e.g. study a module right after its lecture)", req.BusyTimes)
		}
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notes from the student: %s\n\n", req.Notes)
	}
	b.WriteString("Create the complete study plan as JSON.")
	return b.String()
}

func section(b *strings.Builder, title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("null")
	}
	fmt.Fprintf(b, "%s:\n%s\n\n", title, data)
}
