package model

import (
	"fmt"
	"strings"
)

// Choice is a single value/label pair parsed from an options string.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ParseChoices converts newline separated "value : Label" lines into ordered
// choices. A line without a label uses the value as its label. Later
// duplicates replace the label of the first occurrence.
func ParseChoices(raw string) []Choice {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var (
		out   []Choice
		index = map[string]int{}
	)
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		value, label, ok := strings.Cut(line, " : ")
		if !ok {
			label = value
		}
		if i, seen := index[value]; seen {
			out[i].Label = label
			continue
		}
		index[value] = len(out)
		out = append(out, Choice{Value: value, Label: label})
	}
	return out
}

// ChoiceMap is ParseChoices keyed by value.
func ChoiceMap(raw string) map[string]string {
	choices := ParseChoices(raw)
	if len(choices) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(choices))
	for _, c := range choices {
		out[c.Value] = c.Label
	}
	return out
}

var daysOfWeek = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DaysOfWeek returns the week as choices keyed "0" (Sunday) to "6".
func DaysOfWeek() []Choice {
	out := make([]Choice, len(daysOfWeek))
	for i, day := range daysOfWeek {
		out[i] = Choice{Value: fmt.Sprint(i), Label: day}
	}
	return out
}

// DayOfWeekName returns the day name for 0..6, or "" when out of range.
func DayOfWeekName(n int) string {
	if n < 0 || n >= len(daysOfWeek) {
		return ""
	}
	return daysOfWeek[n]
}

// JoinTitles joins titles as "a, b and c".
func JoinTitles(titles []string) string {
	switch len(titles) {
	case 0:
		return ""
	case 1:
		return titles[0]
	}
	return strings.Join(titles[:len(titles)-1], ", ") + " and " + titles[len(titles)-1]
}
