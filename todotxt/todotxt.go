// Package todotxt converts between todo.txt lines and model.Task values.
// Serialized field order is fixed: completion marker, completion date,
// priority, creation date, text.
package todotxt

import (
	"strings"
	"time"

	"todotui/model"
)

// Format classifies the priority symbols observed across a task list.
type Format string

const (
	FormatLetter Format = "letter"
	FormatNumber Format = "number"
	FormatMixed  Format = "mixed"
	FormatNone   Format = "none"
)

// Matches reports whether files in format f agree with the configured
// priority mode. FormatNone matches any mode, FormatMixed matches none.
func (f Format) Matches(mode model.PriorityMode) bool {
	switch f {
	case FormatLetter:
		return mode == model.PriorityLetters
	case FormatNumber:
		return mode == model.PriorityNumbers
	case FormatMixed:
		return false
	}
	return true
}

// ParseFile parses a whole backing file. Ids are assigned sequentially
// starting at 1, one per non-blank line in file order; blank lines are
// skipped without consuming an id.
func ParseFile(content string) []model.Task {
	var tasks []model.Task
	id := 1
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t := ParseLine(line)
		t.ID = id
		id++
		tasks = append(tasks, t)
	}
	return tasks
}

// ParseLine parses one todo.txt line into a task with ID left unset.
// Malformed leading tokens (a lowercase or multi-char priority, a date
// that does not parse) are not consumed and stay part of the text.
func ParseLine(line string) model.Task {
	var t model.Task
	rest := line
	if strings.HasPrefix(rest, "x ") {
		t.Completed = true
		rest = rest[2:]
	}
	if t.Completed {
		if d, r, ok := takeDate(rest); ok {
			t.CompletionDate = d
			rest = r
		}
	}
	if p, r, ok := takePriority(rest); ok {
		t.Priority = p
		rest = r
	}
	if d, r, ok := takeDate(rest); ok {
		t.CreationDate = d
		rest = r
	}
	t.Text = rest
	t.Projects = ExtractProjects(rest)
	t.Contexts = ExtractContexts(rest)
	t.Metadata = ExtractMetadata(rest)
	return t
}

// SerializeTask renders one task as a todo.txt line without the
// trailing newline.
func SerializeTask(t model.Task) string {
	parts := make([]string, 0, 5)
	if t.Completed {
		parts = append(parts, "x")
		if t.CompletionDate != "" {
			parts = append(parts, t.CompletionDate)
		}
	}
	if t.Priority != "" {
		parts = append(parts, "("+t.Priority+")")
	}
	if t.CreationDate != "" {
		parts = append(parts, t.CreationDate)
	}
	if t.Text != "" {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

// SerializeFile renders the whole task list, one line per task, each
// newline-terminated. An empty list produces a single newline so the
// backing file is never zero bytes.
func SerializeFile(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "\n"
	}
	var b strings.Builder
	for _, t := range tasks {
		b.WriteString(SerializeTask(t))
		b.WriteByte('\n')
	}
	return b.String()
}

// ExtractProjects returns the +project tags of text in order of
// appearance. Returns nil when there are none.
func ExtractProjects(text string) []string {
	return extractTags(text, '+')
}

// ExtractContexts returns the @context tags of text in order of
// appearance. Returns nil when there are none.
func ExtractContexts(text string) []string {
	return extractTags(text, '@')
}

func extractTags(text string, prefix byte) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		if len(tok) > 1 && tok[0] == prefix {
			out = append(out, tok[1:])
		}
	}
	return out
}

// ExtractMetadata returns the key:value pairs of text. A token counts
// as metadata when it contains exactly one colon, both halves are
// non-empty, and it is not a +project or @context tag. Returns nil
// when there are none; duplicate keys keep the last value.
func ExtractMetadata(text string) map[string]string {
	var meta map[string]string
	for _, tok := range strings.Fields(text) {
		if tok[0] == '+' || tok[0] == '@' {
			continue
		}
		i := strings.IndexByte(tok, ':')
		if i <= 0 || i == len(tok)-1 || i != strings.LastIndexByte(tok, ':') {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[tok[:i]] = tok[i+1:]
	}
	return meta
}

// DetectPriorityFormat reports which symbol convention the priorities
// in tasks follow.
func DetectPriorityFormat(tasks []model.Task) Format {
	var letters, numbers bool
	for _, t := range tasks {
		if t.Priority == "" {
			continue
		}
		c := t.Priority[0]
		switch {
		case c >= 'A' && c <= 'Z':
			letters = true
		case c >= '0' && c <= '9':
			numbers = true
		}
	}
	switch {
	case letters && numbers:
		return FormatMixed
	case letters:
		return FormatLetter
	case numbers:
		return FormatNumber
	}
	return FormatNone
}

// ConvertPriorities returns a deep copy of tasks with every priority
// translated into target's symbol set. Letters map A=0 through I=8,
// J and beyond clamp to 9; digits map 0=A through 9=J. Priorities
// already in the target set pass through unchanged.
func ConvertPriorities(tasks []model.Task, target model.PriorityMode) []model.Task {
	out := model.CloneTasks(tasks)
	for i := range out {
		p := out[i].Priority
		if p == "" {
			continue
		}
		c := p[0]
		switch target {
		case model.PriorityNumbers:
			if c >= 'A' && c <= 'Z' {
				n := c - 'A'
				if n > 9 {
					n = 9
				}
				out[i].Priority = string('0' + n)
			}
		case model.PriorityLetters:
			if c >= '0' && c <= '9' {
				out[i].Priority = string('A' + (c - '0'))
			}
		}
	}
	return out
}

// ValidDate reports whether s is an ISO YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Today returns the current date in the format used throughout the
// backing file.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// takeDate splits a leading YYYY-MM-DD token off s. The token is only
// consumed when it parses as a real date.
func takeDate(s string) (date, rest string, ok bool) {
	tok, r := splitToken(s)
	if !ValidDate(tok) {
		return "", s, false
	}
	return tok, r, true
}

// takePriority splits a leading (S) token off s, where S is one
// uppercase letter or digit.
func takePriority(s string) (sym, rest string, ok bool) {
	tok, r := splitToken(s)
	if len(tok) != 3 || tok[0] != '(' || tok[2] != ')' {
		return "", s, false
	}
	c := tok[1]
	if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
		return "", s, false
	}
	return string(c), r, true
}

func splitToken(s string) (tok, rest string) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}
