package ai

import "context"

// Concern is a questionnaire answer that counted against the respondent.
type Concern struct {
	Section  string
	Question string
	Answer   string
}

// RemedyInput summarises a scored questionnaire for the advisor.
type RemedyInput struct {
	ScorePercent int
	GradeLetter  string
	GradeLabel   string
	Concerns     []Concern
}

// RemedyNotes are the short suggestions appended to a questionnaire report.
type RemedyNotes struct {
	Summary  string   `json:"summary"`
	Remedies []string `json:"remedies"`
}

// Empty reports whether the notes carry no content.
func (n RemedyNotes) Empty() bool {
	return n.Summary == "" && len(n.Remedies) == 0
}

// Advisor suggests remedies for the concerns raised by a questionnaire.
type Advisor interface {
	Advise(ctx context.Context, input RemedyInput) (RemedyNotes, error)
}
