package questionnaire

// Grade is the categorical band a score falls into.
type Grade struct {
	Letter   string `json:"letter"`
	Label    string `json:"label"`
	MinScore int    `json:"min_score"`
}

// Bands are ordered from best to worst; MinScore is inclusive.
var bands = []Grade{
	{Letter: "A", Label: "Excellent", MinScore: 85},
	{Letter: "B", Label: "Good", MinScore: 70},
	{Letter: "C", Label: "Average", MinScore: 50},
	{Letter: "D", Label: "Needs Attention", MinScore: 30},
	{Letter: "E", Label: "Critical", MinScore: 0},
}

// GradeFor maps a score to its band. Every integer maps to exactly one band;
// values outside [0,100] clamp to the lowest or highest band.
func GradeFor(score int) Grade {
	for _, band := range bands {
		if score >= band.MinScore {
			return band
		}
	}
	return bands[len(bands)-1]
}

// Grades returns the bands from best to worst.
func Grades() []Grade {
	out := make([]Grade, len(bands))
	copy(out, bands)
	return out
}

// Rank orders grades by favorability; higher is better and the lowest band is 0.
func (g Grade) Rank() int {
	for i, band := range bands {
		if band.Letter == g.Letter {
			return len(bands) - 1 - i
		}
	}
	return -1
}

// String returns "A (Excellent)".
func (g Grade) String() string {
	return g.Letter + " (" + g.Label + ")"
}

// GradeByLetter looks a band up by its letter.
func GradeByLetter(letter string) (Grade, bool) {
	for _, band := range bands {
		if band.Letter == letter {
			return band, true
		}
	}
	return Grade{}, false
}
