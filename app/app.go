package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"todotui/model"
	"todotui/store"
	"todotui/todotxt"
)

const undoStackLimit = 50

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidTask     = errors.New("task text must not be empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTag      = errors.New("tag must be a single word")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToPaste  = errors.New("nothing yanked yet")
)

// Stats summarizes the whole task collection, ignoring any active
// filter or search.
type Stats struct {
	DueOrOverdue   int
	CompletedToday int
	Active         int
	Total          int
}

// Service holds domain rules and in-memory state. Every mutating
// operation snapshots the task collection for undo first, applies its
// change, then writes the full list back to the backing file. An
// empty path keeps the service in-memory only.
type Service struct {
	tasks []model.Task
	undo  [][]model.Task
	path  string

	mode          model.PriorityMode
	filter        model.Filter
	search        string
	sortMode      model.SortMode
	showCompleted bool
	yanked        *model.Task
}

// NewService creates a service over a copy of tasks.
func NewService(tasks []model.Task, path string, mode model.PriorityMode) *Service {
	if mode != model.PriorityNumbers {
		mode = model.PriorityLetters
	}
	return &Service{
		tasks:    model.CloneTasks(tasks),
		undo:     [][]model.Task{},
		path:     path,
		mode:     mode,
		sortMode: model.SortPriority,
	}
}

// Tasks returns the full unfiltered collection as a copy.
func (s *Service) Tasks() []model.Task {
	return model.CloneTasks(s.tasks)
}

// Get returns a task by id.
func (s *Service) Get(id int) (model.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Reload replaces the collection with the current file content,
// keeping a snapshot so the refresh itself can be undone.
func (s *Service) Reload() error {
	if s.path == "" {
		return nil
	}
	tasks, err := store.LoadTasks(s.path)
	if err != nil {
		return err
	}
	s.pushUndo()
	s.tasks = tasks
	return nil
}

// Save writes the collection to the backing file without mutating it.
func (s *Service) Save() error {
	return s.persist()
}

// Add creates a task from text. A leading "(X) " prefix valid in the
// current priority mode becomes the task's priority; the creation date
// is always today. The new id is one above the highest in the store.
func (s *Service) Add(text string) (model.Task, error) {
	text = strings.TrimSpace(text)
	priority := ""
	if len(text) >= 4 && text[0] == '(' && text[2] == ')' && text[3] == ' ' &&
		model.ValidPriority(string(text[1]), s.mode) {
		priority = string(text[1])
		text = strings.TrimSpace(text[4:])
	}
	if text == "" {
		return model.Task{}, ErrInvalidTask
	}

	task := model.Task{
		ID:           s.nextID(),
		Priority:     priority,
		CreationDate: todotxt.Today(),
		Text:         text,
		Projects:     todotxt.ExtractProjects(text),
		Contexts:     todotxt.ExtractContexts(text),
		Metadata:     todotxt.ExtractMetadata(text),
	}
	s.pushUndo()
	s.tasks = append(s.tasks, task)
	return task.Clone(), s.persist()
}

// UpdateText rewrites a task's text and resets the derived fields
// from the new text.
func (s *Service) UpdateText(id int, text string) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrInvalidTask
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.pushUndo()
			s.setText(i, text)
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

func (s *Service) Delete(id int) error {
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		s.pushUndo()
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		return s.persist()
	}
	return ErrTaskNotFound
}

// ToggleCompletion flips a task's completed flag. Completing stamps
// today as the completion date, un-completing clears it. The priority
// field is left untouched either way.
func (s *Service) ToggleCompletion(id int) (model.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.pushUndo()
			s.tasks[i].Completed = !s.tasks[i].Completed
			if s.tasks[i].Completed {
				s.tasks[i].CompletionDate = todotxt.Today()
			} else {
				s.tasks[i].CompletionDate = ""
			}
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

func (s *Service) SetPriority(id int, sym string) (model.Task, error) {
	if !model.ValidPriority(sym, s.mode) {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, sym)
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			if s.tasks[i].Priority == sym {
				return s.tasks[i].Clone(), nil
			}
			s.pushUndo()
			s.tasks[i].Priority = sym
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

func (s *Service) ClearPriority(id int) (model.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			if s.tasks[i].Priority == "" {
				return s.tasks[i].Clone(), nil
			}
			s.pushUndo()
			s.tasks[i].Priority = ""
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

func (s *Service) ClearCreationDate(id int) (model.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			if s.tasks[i].CreationDate == "" {
				return s.tasks[i].Clone(), nil
			}
			s.pushUndo()
			s.tasks[i].CreationDate = ""
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// AddProject appends a +project tag to the task text. Adding a tag
// the text already carries is a no-op.
func (s *Service) AddProject(id int, name string) (model.Task, error) {
	return s.addTag(id, "+", name)
}

// AddContext appends an @context tag to the task text. Adding a tag
// the text already carries is a no-op.
func (s *Service) AddContext(id int, name string) (model.Task, error) {
	return s.addTag(id, "@", name)
}

func (s *Service) addTag(id int, prefix, name string) (model.Task, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, prefix)
	if name == "" || strings.ContainsAny(name, " \t") {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidTag, name)
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			tags := s.tasks[i].Projects
			if prefix == "@" {
				tags = s.tasks[i].Contexts
			}
			for _, existing := range tags {
				if existing == name {
					return s.tasks[i].Clone(), nil
				}
			}
			s.pushUndo()
			s.setText(i, s.tasks[i].Text+" "+prefix+name)
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// SetDueDate sets or replaces the task's due: metadata.
func (s *Service) SetDueDate(id int, date string) (model.Task, error) {
	date = strings.TrimSpace(date)
	if !todotxt.ValidDate(date) {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.pushUndo()
			if old, ok := s.tasks[i].Metadata["due"]; ok {
				text, _ := removeToken(s.tasks[i].Text, "due:"+old)
				s.setText(i, strings.TrimSpace(text+" due:"+date))
			} else {
				s.setText(i, s.tasks[i].Text+" due:"+date)
			}
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// RemoveProject deletes a +project tag from the task text.
func (s *Service) RemoveProject(id int, name string) (model.Task, error) {
	return s.removeTokenFromTask(id, "+"+name)
}

// RemoveContext deletes an @context tag from the task text.
func (s *Service) RemoveContext(id int, name string) (model.Task, error) {
	return s.removeTokenFromTask(id, "@"+name)
}

// RemoveMetadata deletes a key:value pair from the task text.
func (s *Service) RemoveMetadata(id int, key string) (model.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			value, ok := s.tasks[i].Metadata[key]
			if !ok {
				return s.tasks[i].Clone(), nil
			}
			return s.removeTokenFromTask(id, key+":"+value)
		}
	}
	return model.Task{}, ErrTaskNotFound
}

func (s *Service) removeTokenFromTask(id int, token string) (model.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			text, removed := removeToken(s.tasks[i].Text, token)
			if !removed {
				return s.tasks[i].Clone(), nil
			}
			s.pushUndo()
			s.setText(i, text)
			return s.tasks[i].Clone(), s.persist()
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Yank remembers a deep copy of the task for a later paste.
func (s *Service) Yank(id int) (model.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			c := t.Clone()
			s.yanked = &c
			return t.Clone(), nil
		}
	}
	return model.Task{}, ErrTaskNotFound
}

// Yanked returns the last yanked task, if any.
func (s *Service) Yanked() (model.Task, bool) {
	if s.yanked == nil {
		return model.Task{}, false
	}
	return s.yanked.Clone(), true
}

// PasteYanked inserts a near-duplicate of the yanked task: fresh id,
// today's creation date, completion state reset.
func (s *Service) PasteYanked() (model.Task, error) {
	if s.yanked == nil {
		return model.Task{}, ErrNothingToPaste
	}
	task := s.yanked.Clone()
	task.ID = s.nextID()
	task.CreationDate = todotxt.Today()
	task.Completed = false
	task.CompletionDate = ""
	s.pushUndo()
	s.tasks = append(s.tasks, task)
	return task.Clone(), s.persist()
}

// Undo reverts the latest mutating action from the undo stack.
func (s *Service) Undo() error {
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.tasks = model.CloneTasks(last)
	return s.persist()
}

// ConvertPriorities rewrites every priority into mode's symbol set and
// makes mode the active one.
func (s *Service) ConvertPriorities(mode model.PriorityMode) error {
	s.pushUndo()
	s.tasks = todotxt.ConvertPriorities(s.tasks, mode)
	s.mode = mode
	return s.persist()
}

// PriorityMode returns the active priority symbol set.
func (s *Service) PriorityMode() model.PriorityMode {
	return s.mode
}

// SetPriorityMode switches the symbol set without touching any task.
func (s *Service) SetPriorityMode(mode model.PriorityMode) {
	if mode == model.PriorityLetters || mode == model.PriorityNumbers {
		s.mode = mode
	}
}

func (s *Service) Filter() model.Filter {
	return s.filter
}

func (s *Service) SetFilter(f model.Filter) {
	s.filter = f
}

func (s *Service) ClearFilter() {
	s.filter = model.Filter{}
}

func (s *Service) Search() string {
	return s.search
}

func (s *Service) SetSearch(query string) {
	s.search = strings.TrimSpace(query)
}

func (s *Service) SortMode() model.SortMode {
	return s.sortMode
}

func (s *Service) SetSortMode(m model.SortMode) {
	switch m {
	case model.SortPriority, model.SortDate, model.SortProject, model.SortContext:
		s.sortMode = m
	}
}

// CycleSortMode advances to the next sort mode and returns it.
func (s *Service) CycleSortMode() model.SortMode {
	s.sortMode = model.NextSortMode(s.sortMode)
	return s.sortMode
}

func (s *Service) ShowCompleted() bool {
	return s.showCompleted
}

// ToggleShowCompleted flips the completed-visibility default and
// returns the new value.
func (s *Service) ToggleShowCompleted() bool {
	s.showCompleted = !s.showCompleted
	return s.showCompleted
}

// VisibleTasks recomputes the rendered subset: the active filter (when
// set) replaces the hide-completed default entirely, search narrows
// whatever is left, and completed tasks always sort after active ones.
func (s *Service) VisibleTasks() []model.Task {
	today := todotxt.Today()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if s.filter.Active() {
			if !matchesFilter(t, s.filter, today) {
				continue
			}
		} else if t.Completed && !s.showCompleted {
			continue
		}
		if s.search != "" && !matchesSearch(t, s.search) {
			continue
		}
		out = append(out, t.Clone())
	}
	sortTasks(out, s.sortMode)
	return out
}

// AllProjects returns the sorted distinct project tags across the
// entire collection.
func (s *Service) AllProjects() []string {
	return distinctTags(s.tasks, func(t model.Task) []string { return t.Projects })
}

// AllContexts returns the sorted distinct context tags across the
// entire collection.
func (s *Service) AllContexts() []string {
	return distinctTags(s.tasks, func(t model.Task) []string { return t.Contexts })
}

// Stats computes the dashboard counters over the unfiltered collection.
func (s *Service) Stats() Stats {
	today := todotxt.Today()
	st := Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if !t.Completed {
			st.Active++
			if due, ok := t.Metadata["due"]; ok && todotxt.ValidDate(due) && due <= today {
				st.DueOrOverdue++
			}
		} else if t.CompletionDate == today {
			st.CompletedToday++
		}
	}
	return st
}

// setText rewrites the text of the task at index i and resets every
// derived field from it.
func (s *Service) setText(i int, text string) {
	s.tasks[i].Text = text
	s.tasks[i].Projects = todotxt.ExtractProjects(text)
	s.tasks[i].Contexts = todotxt.ExtractContexts(text)
	s.tasks[i].Metadata = todotxt.ExtractMetadata(text)
}

func (s *Service) nextID() int {
	max := 0
	for _, t := range s.tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func (s *Service) pushUndo() {
	s.undo = append(s.undo, model.CloneTasks(s.tasks))
	if len(s.undo) > undoStackLimit {
		s.undo = s.undo[len(s.undo)-undoStackLimit:]
	}
}

func (s *Service) persist() error {
	if s.path == "" {
		return nil
	}
	if err := store.SaveTasks(s.path, s.tasks); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func matchesFilter(t model.Task, f model.Filter, today string) bool {
	switch f.Kind {
	case model.FilterPriority:
		return t.Priority == f.Value
	case model.FilterProject:
		return containsString(t.Projects, f.Value)
	case model.FilterContext:
		return containsString(t.Contexts, f.Value)
	case model.FilterDue:
		if t.Completed {
			return false
		}
		due, ok := t.Metadata["due"]
		return ok && todotxt.ValidDate(due) && due <= today
	case model.FilterDoneToday:
		return t.Completed && t.CompletionDate == today
	case model.FilterActive:
		return !t.Completed
	default:
		return true
	}
}

func matchesSearch(t model.Task, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Text), q) {
		return true
	}
	for _, p := range t.Projects {
		if strings.Contains(strings.ToLower(p), q) {
			return true
		}
	}
	for _, c := range t.Contexts {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}

// sortTasks orders completed tasks after active ones, then compares
// the sort key lexicographically with missing keys last, then breaks
// ties by ascending id.
func sortTasks(tasks []model.Task, mode model.SortMode) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		ak, bk := sortKey(a, mode), sortKey(b, mode)
		if ak != bk {
			if ak == "" {
				return false
			}
			if bk == "" {
				return true
			}
			return ak < bk
		}
		return a.ID < b.ID
	})
}

func sortKey(t model.Task, mode model.SortMode) string {
	switch mode {
	case model.SortDate:
		return t.CreationDate
	case model.SortProject:
		if len(t.Projects) > 0 {
			return t.Projects[0]
		}
		return ""
	case model.SortContext:
		if len(t.Contexts) > 0 {
			return t.Contexts[0]
		}
		return ""
	default:
		return t.Priority
	}
}

func distinctTags(tasks []model.Task, pick func(model.Task) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tasks {
		for _, tag := range pick(t) {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	sort.Strings(out)
	return out
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// removeToken drops the first whitespace-separated token of text equal
// to token, reporting whether anything was removed.
func removeToken(text, token string) (string, bool) {
	fields := strings.Fields(text)
	for i, f := range fields {
		if f == token {
			fields = append(fields[:i], fields[i+1:]...)
			return strings.Join(fields, " "), true
		}
	}
	return text, false
}
