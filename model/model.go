package model

// PriorityMode selects which symbol set task priorities use.
type PriorityMode string

const (
	PriorityLetters PriorityMode = "letters" // (A)..(Z)
	PriorityNumbers PriorityMode = "numbers" // (0)..(9)
)

// ValidPriority reports whether sym is a single legal priority symbol
// under mode. The empty string means "no priority" and is not valid here.
func ValidPriority(sym string, mode PriorityMode) bool {
	if len(sym) != 1 {
		return false
	}
	c := sym[0]
	if mode == PriorityNumbers {
		return c >= '0' && c <= '9'
	}
	return c >= 'A' && c <= 'Z'
}

// PrioritySymbols returns every symbol of mode's set in display order,
// highest urgency first.
func PrioritySymbols(mode PriorityMode) []string {
	var first, last byte = 'A', 'Z'
	if mode == PriorityNumbers {
		first, last = '0', '9'
	}
	syms := make([]string, 0, int(last-first)+1)
	for c := first; c <= last; c++ {
		syms = append(syms, string(c))
	}
	return syms
}

// SortMode orders the visible task list.
type SortMode string

const (
	SortPriority SortMode = "priority"
	SortDate     SortMode = "date"
	SortProject  SortMode = "project"
	SortContext  SortMode = "context"
)

// NextSortMode returns the mode after m in the fixed cycle
// priority -> date -> project -> context -> priority.
func NextSortMode(m SortMode) SortMode {
	switch m {
	case SortPriority:
		return SortDate
	case SortDate:
		return SortProject
	case SortProject:
		return SortContext
	default:
		return SortPriority
	}
}

// FilterKind names the facet an active filter narrows by.
type FilterKind string

const (
	FilterNone      FilterKind = "" // zero value: no filter
	FilterPriority  FilterKind = "priority"
	FilterProject   FilterKind = "project"
	FilterContext   FilterKind = "context"
	FilterDue       FilterKind = "due"
	FilterDoneToday FilterKind = "doneToday"
	FilterActive    FilterKind = "active"
)

// Filter narrows the visible task list to one facet value. The zero
// Filter matches everything.
type Filter struct {
	Kind  FilterKind
	Value string
}

// Active reports whether f narrows the list at all.
func (f Filter) Active() bool {
	return f.Kind != FilterNone
}

// Task is one todo.txt line held in memory. Text is the source of
// truth; Projects, Contexts and Metadata are derived from it and must
// be re-extracted whenever Text changes.
type Task struct {
	ID             int
	Completed      bool
	Priority       string // "" = none, otherwise one symbol
	CreationDate   string // YYYY-MM-DD or ""
	CompletionDate string // YYYY-MM-DD or "", only while Completed
	Text           string

	Projects []string
	Contexts []string
	Metadata map[string]string
}

// Clone returns a deep copy of t with no shared slices or maps.
func (t Task) Clone() Task {
	c := t
	if t.Projects != nil {
		c.Projects = append([]string(nil), t.Projects...)
	}
	if t.Contexts != nil {
		c.Contexts = append([]string(nil), t.Contexts...)
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// CloneTasks deep-copies a whole collection. Snapshots taken for undo
// go through here so no snapshot aliases live task data.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
