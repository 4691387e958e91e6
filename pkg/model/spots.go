package model

// OpenSpots returns the number of unclaimed spots on a task given its filled
// count. Header rows never have spots.
func (t Task) OpenSpots(filled int) int {
	if t.IsHeader() {
		return 0
	}
	open := t.Qty - filled
	if open < 0 {
		return 0
	}
	return open
}

// IsFull reports whether the task has no open spots left.
func (t Task) IsFull(filled int) bool {
	return !t.IsHeader() && filled >= t.Qty
}

// OpenSpots sums the open spots across all tasks of a sheet. filled is keyed
// by task ID.
func OpenSpots(tasks []Task, filled map[int64]int) int {
	total := 0
	for _, task := range tasks {
		total += task.OpenSpots(filled[task.ID])
	}
	return total
}

// DisplayNameMode controls how sign-up names appear on the front-end.
type DisplayNameMode string

const (
	DisplayNameDefault   DisplayNameMode = "default"
	DisplayNameFull      DisplayNameMode = "full"
	DisplayNameAnonymous DisplayNameMode = "anonymous"
)

// DisplayName renders the public name for a filled spot.
func (s Signup) DisplayName(mode DisplayNameMode) string {
	switch mode {
	case DisplayNameFull:
		return s.FullName()
	case DisplayNameAnonymous:
		return "Filled"
	}
	name := s.FirstName
	if last := []rune(s.LastName); len(last) > 0 {
		name += " " + string(last[0]) + "."
	}
	return name
}
