package questionnaire

import (
	"fmt"
	"sort"
	"strings"
)

// Section names used by the default bank.
const (
	SectionProperty   = "Property"
	SectionEntrance   = "Entrance"
	SectionKitchen    = "Kitchen"
	SectionBedrooms   = "Bedrooms"
	SectionToilets    = "Toilets & Bathrooms"
	SectionWater      = "Water & Slope"
	SectionLayout     = "Centre & Open Spaces"
	SectionPuja       = "Puja & Study"
	SectionWellbeing  = "Wellbeing"
	SectionAdditional = "Additional Details"
)

var directions = []string{"North", "North-East", "East", "South-East", "South", "South-West", "West", "North-West"}

// Bank is the ordered, immutable list of questions. It is safe for concurrent use.
type Bank struct {
	questions []Question
	required  int
}

// NewBank validates the questions and assigns their positional index.
func NewBank(questions []Question) (*Bank, error) {
	out := make([]Question, len(questions))
	required := 0
	for i, q := range questions {
		q.Index = i
		q.Options = append([]string(nil), q.Options...)
		q.Favorable = append([]string(nil), q.Favorable...)
		if err := q.check(); err != nil {
			return nil, err
		}
		if !q.Optional {
			required++
		}
		out[i] = q
	}
	return &Bank{questions: out, required: required}, nil
}

// MustNewBank is NewBank that panics on an invalid question list.
func MustNewBank(questions []Question) *Bank {
	bank, err := NewBank(questions)
	if err != nil {
		panic(fmt.Sprintf("questionnaire: %v", err))
	}
	return bank
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// RequiredCount returns the number of non-optional questions.
func (b *Bank) RequiredCount() int {
	return b.required
}

// Question returns the question at index.
func (b *Bank) Question(index int) (Question, bool) {
	if index < 0 || index >= len(b.questions) {
		return Question{}, false
	}
	return b.questions[index], true
}

// Questions returns a copy of the bank in display order.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Sections returns section names in first-appearance order.
func (b *Bank) Sections() []string {
	seen := make(map[string]struct{})
	sections := make([]string, 0)
	for _, q := range b.questions {
		if _, ok := seen[q.Section]; ok {
			continue
		}
		seen[q.Section] = struct{}{}
		sections = append(sections, q.Section)
	}
	return sections
}

// InvalidAnswers returns the indices whose answers are not one of the question options.
func (b *Bank) InvalidAnswers(answers AnswerSet) []int {
	invalid := make([]int, 0)
	for index, answer := range answers {
		q, ok := b.Question(index)
		if !ok || strings.TrimSpace(answer) == "" {
			continue
		}
		if !q.Accepts(answer) {
			invalid = append(invalid, index)
		}
	}
	sort.Ints(invalid)
	return invalid
}

var defaultBank = MustNewBank([]Question{
	optional(choice(SectionProperty, "What type of property is this?",
		[]string{"Residential flat", "Independent house", "Commercial office", "Shop or showroom", "Factory or industrial"})),
	choice(SectionProperty, "Which direction does the main entrance face?", directions, "North", "North-East", "East"),
	optional(choice(SectionProperty, "How long have you lived or worked at this property?",
		[]string{"Less than 1 year", "1 to 5 years", "More than 5 years"})),

	yesNo(SectionEntrance, "Is the main door the largest door in the property?", "Yes"),
	yesNo(SectionEntrance, "Does the main door open inwards in a clockwise direction?", "Yes"),
	yesNo(SectionEntrance, "Is the entrance free of obstructions such as poles, trees or pillars directly in front?", "Yes"),
	yesNo(SectionEntrance, "Is there a staircase directly facing the main door?", "No"),
	yesNo(SectionEntrance, "Is the entrance well lit in the evening?", "Yes"),

	yesNo(SectionKitchen, "Is the kitchen located in the South-East zone?", "Yes"),
	yesNo(SectionKitchen, "Does the cook face East while cooking?", "Yes"),
	yesNo(SectionKitchen, "Is the kitchen located in the North-East zone?", "No"),
	yesNo(SectionKitchen, "Are the stove and the sink placed side by side?", "No"),
	yesNo(SectionKitchen, "Is the kitchen directly opposite or adjacent to a toilet?", "No"),

	yesNo(SectionBedrooms, "Is the master bedroom in the South-West zone?", "Yes"),
	yesNo(SectionBedrooms, "Do you sleep with your head towards the South or East?", "Yes"),
	yesNo(SectionBedrooms, "Is there a mirror facing the bed?", "No"),
	yesNo(SectionBedrooms, "Is the bed placed directly under a beam?", "No"),
	yesNo(SectionBedrooms, "Do children use the West or North-West bedrooms?", "Yes"),

	yesNo(SectionToilets, "Is any toilet located in the North-East zone?", "No"),
	yesNo(SectionToilets, "Is any toilet located in the centre (Brahmasthan) of the property?", "No"),
	yesNo(SectionToilets, "Are toilet doors kept closed when not in use?", "Yes"),
	yesNo(SectionToilets, "Do the toilets have adequate ventilation?", "Yes"),

	yesNo(SectionWater, "Is the underground water tank or borewell in the North-East zone?", "Yes"),
	yesNo(SectionWater, "Is the overhead water tank in the South-West zone?", "Yes"),
	yesNo(SectionWater, "Does the floor or plot slope towards the North or East?", "Yes"),
	yesNo(SectionWater, "Are there any water leakages or seepage in the property?", "No"),

	yesNo(SectionLayout, "Is the centre of the property free of heavy furniture, walls or pillars?", "Yes"),
	yesNo(SectionLayout, "Is there more open space in the North and East than in the South and West?", "Yes"),
	yesNo(SectionLayout, "Are the South and West walls thicker or higher than the North and East walls?", "Yes"),
	yesNo(SectionLayout, "Is the property regular in shape (square or rectangular)?", "Yes"),
	yesNo(SectionLayout, "Is the North-East corner cut or missing?", "No"),

	yesNo(SectionPuja, "Is there a dedicated puja or meditation space in the North-East?", "Yes"),
	yesNo(SectionPuja, "Does the study desk face North or East?", "Yes"),

	yesNo(SectionWellbeing, "Do residents experience frequent health issues?", "No"),
	yesNo(SectionWellbeing, "Are there frequent disputes or arguments in the household?", "No"),
	yesNo(SectionWellbeing, "Has there been an unexpected financial loss in the last year?", "No"),
	yesNo(SectionWellbeing, "Do you feel restless or sleep poorly in the property?", "No"),
	yesNo(SectionWellbeing, "Are clutter or broken items stored in the property?", "No"),

	optional(freeText(SectionAdditional, "Date of birth of the primary occupant")),
	optional(yesNo(SectionAdditional, "Have Vastu remedies been applied at this property before?", "Yes")),
	optional(freeText(SectionAdditional, "Any other concerns you would like us to address?")),
})

// DefaultBank returns the consultancy's diagnostic question bank.
func DefaultBank() *Bank {
	return defaultBank
}
