package questionnaire

import (
	"fmt"
	"strings"
)

// Kind describes how a question is answered.
type Kind string

const (
	// KindYesNo is answered with "Yes" or "No".
	KindYesNo Kind = "yes_no"
	// KindChoice is answered with one of the question options.
	KindChoice Kind = "choice"
	// KindText is answered with free text.
	KindText Kind = "text"
)

var yesNoOptions = []string{"Yes", "No"}

// Question is a single diagnostic prompt in the bank.
type Question struct {
	Index    int
	Section  string
	Text     string
	Kind     Kind
	Options  []string
	Optional bool
	// Favorable lists the answers classified as positive for this question.
	// Questions phrased in the negative direction list "No" here.
	Favorable []string
}

// IsFavorable reports whether answer is classified positive for the question.
func (q Question) IsFavorable(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for _, candidate := range q.Favorable {
		if strings.EqualFold(candidate, answer) {
			return true
		}
	}
	return false
}

// Accepts reports whether answer is a legal value for the question.
func (q Question) Accepts(answer string) bool {
	answer = strings.TrimSpace(answer)
	if q.Kind == KindText {
		return true
	}
	for _, option := range q.Options {
		if strings.EqualFold(option, answer) {
			return true
		}
	}
	return false
}

func (q Question) check() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %d: text is required", q.Index)
	}
	switch q.Kind {
	case KindYesNo, KindChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %d: options are required for %s", q.Index, q.Kind)
		}
		for _, favorable := range q.Favorable {
			if !q.Accepts(favorable) {
				return fmt.Errorf("question %d: favorable answer %q is not an option", q.Index, favorable)
			}
		}
	case KindText:
	default:
		return fmt.Errorf("question %d: unknown kind %q", q.Index, q.Kind)
	}
	return nil
}

func yesNo(section, text string, favorable string) Question {
	return Question{
		Section:   section,
		Text:      text,
		Kind:      KindYesNo,
		Options:   yesNoOptions,
		Favorable: []string{favorable},
	}
}

func choice(section, text string, options []string, favorable ...string) Question {
	return Question{
		Section:   section,
		Text:      text,
		Kind:      KindChoice,
		Options:   options,
		Favorable: favorable,
	}
}

func optional(q Question) Question {
	q.Optional = true
	return q
}

func freeText(section, text string) Question {
	return Question{Section: section, Text: text, Kind: KindText}
}
