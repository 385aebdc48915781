package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"todotui/app"
	"todotui/config"
	"todotui/model"
	"todotui/todotxt"
)

type focusPanel int

const (
	panelTasks focusPanel = iota
	panelPriorities
	panelStats
	panelProjects
	panelContexts
	panelCount
)

func (p focusPanel) String() string {
	switch p {
	case panelPriorities:
		return "Priorities"
	case panelStats:
		return "Stats"
	case panelProjects:
		return "Projects"
	case panelContexts:
		return "Contexts"
	default:
		return "Tasks"
	}
}

type uiMode int

const (
	modeNormal uiMode = iota
	modeNewTask
	modeEditTask
	modeSearch
	modeAddProject
	modeAddContext
	modeAddDue
	modeCommand
	modeConfirmDelete
	modeHelp
	modeSettings
	modeFormatDialog
)

const searchDebounce = 150 * time.Millisecond

// searchTickMsg fires after the debounce interval; only the message
// carrying the latest sequence number applies the query.
type searchTickMsg struct {
	seq int
}

type Model struct {
	svc     *app.Service
	cfg     config.Config
	cfgPath string

	focus      focusPanel
	mode       uiMode
	taskCursor int
	sideCursor int
	// elementCursor addresses one sub-token of the selected task row:
	// checkbox, priority slot, creation date, text, then tags and
	// metadata pairs in order.
	elementCursor int

	input             textinput.Model
	inputLabel        string
	editID            int
	searchPrev        string
	searchPrevCursor  int
	searchPrevElement int
	searchSeq         int

	confirmID   int
	confirmText string

	settingsCursor int
	detected       todotxt.Format
	showOverdue    bool

	status    string
	statusErr bool

	width  int
	height int

	keys keyMap
	help help.Model
}

func NewModel(svc *app.Service, cfg config.Config, cfgPath string, detected todotxt.Format) *Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48

	m := &Model{
		svc:         svc,
		cfg:         cfg,
		cfgPath:     cfgPath,
		focus:       panelTasks,
		mode:        modeNormal,
		input:       ti,
		detected:    detected,
		showOverdue: true,
		status:      "Ready • ? for help",
		keys:        newKeyMap(),
		help:        help.New(),
	}
	if detected != todotxt.FormatNone && !detected.Matches(svc.PriorityMode()) {
		m.mode = modeFormatDialog
	}
	return m
}

// Run starts the interactive program and blocks until the user quits.
func Run(svc *app.Service, cfg config.Config, cfgPath string, detected todotxt.Format) error {
	applyColorProfilePreference()
	if !setTheme(cfg.Theme) {
		log.Warn("unknown theme in config", "theme", cfg.Theme)
		setTheme("default")
	}

	program := tea.NewProgram(NewModel(svc, cfg, cfgPath, detected), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if w := msg.Width - 20; w > 20 {
			m.input.Width = w
		}
	case searchTickMsg:
		if msg.seq == m.searchSeq && m.mode == modeSearch {
			m.applySearch(m.input.Value())
		}
	case tea.KeyMsg:
		switch m.mode {
		case modeNewTask, modeEditTask, modeSearch, modeAddProject, modeAddContext, modeAddDue, modeCommand:
			cmd, quit := m.updateInputMode(msg)
			if quit {
				return m, tea.Quit
			}
			return m, cmd
		case modeConfirmDelete:
			m.updateConfirmMode(msg)
		case modeHelp:
			m.mode = modeNormal
		case modeSettings:
			m.updateSettingsMode(msg)
		case modeFormatDialog:
			m.updateFormatDialogMode(msg)
		default:
			if quit := m.updateNormalMode(msg); quit {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.forceQuit):
		return true
	case key.Matches(msg, m.keys.back):
		return m.stepBack()
	case key.Matches(msg, m.keys.nextPanel):
		m.cycleFocus()
	case key.Matches(msg, m.keys.down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.left):
		m.moveElement(-1)
	case key.Matches(msg, m.keys.right):
		m.moveElement(1)
	case key.Matches(msg, m.keys.top):
		m.jumpCursor(0)
	case key.Matches(msg, m.keys.bottom):
		m.jumpCursor(m.focusedCount() - 1)
	case key.Matches(msg, m.keys.selectItem):
		if m.focus == panelTasks {
			m.startEditTask()
		} else {
			m.applyPanelSelection()
		}
	case key.Matches(msg, m.keys.edit):
		m.startEditTask()
	case key.Matches(msg, m.keys.toggleDone):
		m.toggleSelected()
	case key.Matches(msg, m.keys.newTask):
		m.startInput(modeNewTask, "New task", "", "buy milk +errands @store")
	case key.Matches(msg, m.keys.deleteTask):
		m.startDeleteConfirm()
	case key.Matches(msg, m.keys.deleteElement):
		m.deleteSelectedElement()
	case key.Matches(msg, m.keys.addProject):
		m.startTagInput(modeAddProject, "Add project", "name")
	case key.Matches(msg, m.keys.addContext):
		m.startTagInput(modeAddContext, "Add context", "name")
	case key.Matches(msg, m.keys.addDue):
		m.startTagInput(modeAddDue, "Due date", "YYYY-MM-DD")
	case key.Matches(msg, m.keys.showDone):
		if m.svc.ToggleShowCompleted() {
			m.setStatus("Completed tasks shown", false)
		} else {
			m.setStatus("Completed tasks hidden", false)
		}
	case key.Matches(msg, m.keys.search):
		m.searchPrev = m.svc.Search()
		m.searchPrevCursor = m.taskCursor
		m.searchPrevElement = m.elementCursor
		m.startInput(modeSearch, "Search", m.svc.Search(), "text, +project or @context")
	case key.Matches(msg, m.keys.sortMode):
		next := m.svc.CycleSortMode()
		m.taskCursor = 0
		m.elementCursor = 0
		m.setStatus("Sort: "+string(next), false)
	case key.Matches(msg, m.keys.undo):
		m.undoLast()
	case key.Matches(msg, m.keys.toggleHelp):
		m.mode = modeHelp
	case key.Matches(msg, m.keys.overdue):
		m.showOverdue = !m.showOverdue
		if m.showOverdue {
			m.setStatus("Overdue highlight on", false)
		} else {
			m.setStatus("Overdue highlight off", false)
		}
	case key.Matches(msg, m.keys.command):
		m.startInput(modeCommand, ":", "", "")
	case key.Matches(msg, m.keys.yank):
		m.yankSelected()
	case key.Matches(msg, m.keys.paste):
		m.pasteYanked()
	default:
		m.setPriorityFromKey(msg.String())
	}

	m.clampCursors()
	return false
}

func (m *Model) updateInputMode(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelInput()
		return nil, false
	case "enter":
		return nil, m.applyInput()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if m.mode == modeSearch && m.input.Value() != before {
		m.searchSeq++
		seq := m.searchSeq
		return tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchTickMsg{seq: seq}
		})), false
	}
	return cmd, false
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) {
	if strings.ToLower(msg.String()) == "y" {
		err := m.svc.Delete(m.confirmID)
		m.finishMutation(err, "Task deleted • u to undo")
	}
	m.mode = modeNormal
	m.confirmID = 0
	m.confirmText = ""
	m.clampCursors()
}

func (m *Model) updateSettingsMode(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeNormal
		m.saveConfig()
	case "j", "down":
		m.settingsCursor = clamp(m.settingsCursor+1, 0, 1)
	case "k", "up":
		m.settingsCursor = clamp(m.settingsCursor-1, 0, 1)
	case "enter", " ", "space", "l", "right":
		m.cycleSetting(1)
	case "h", "left":
		m.cycleSetting(-1)
	}
}

func (m *Model) cycleSetting(delta int) {
	switch m.settingsCursor {
	case 0:
		next := model.PriorityLetters
		if m.svc.PriorityMode() == model.PriorityLetters {
			next = model.PriorityNumbers
		}
		m.svc.SetPriorityMode(next)
		m.cfg.PriorityMode = next
		m.sideCursor = 0
	case 1:
		names := themeNames()
		idx := 0
		for i, n := range names {
			if n == currentTheme {
				idx = i
				break
			}
		}
		idx = (idx + delta + len(names)) % len(names)
		setTheme(names[idx])
		m.cfg.Theme = names[idx]
	}
}

func (m *Model) updateFormatDialogMode(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "c":
		mode := m.svc.PriorityMode()
		if err := m.svc.ConvertPriorities(mode); err != nil {
			m.setStatus("Conversion applied, but saving failed: "+err.Error(), true)
		} else {
			m.setStatus("File priorities converted to "+string(mode), false)
		}
		m.mode = modeNormal
	case "s":
		var target model.PriorityMode
		switch m.detected {
		case todotxt.FormatLetter:
			target = model.PriorityLetters
		case todotxt.FormatNumber:
			target = model.PriorityNumbers
		default:
			return
		}
		m.svc.SetPriorityMode(target)
		m.cfg.PriorityMode = target
		m.saveConfig()
		m.setStatus("Priority mode switched to "+string(target), false)
		m.mode = modeNormal
	case "i", "esc", "enter":
		m.setStatus("Priority format left as is", false)
		m.mode = modeNormal
	}
}

// applyInput commits the pending text entry. It reports whether the
// program should quit, which only colon commands can request.
func (m *Model) applyInput() bool {
	text := strings.TrimSpace(m.input.Value())

	switch m.mode {
	case modeNewTask:
		if text == "" {
			m.setStatus("Task text must not be empty", true)
			return false
		}
		task, err := m.svc.Add(text)
		if err != nil {
			if errors.Is(err, app.ErrInvalidTask) {
				m.setStatus("Task text must not be empty", true)
				return false
			}
			m.setStatus("Task added, but saving failed: "+err.Error(), true)
			log.Error("write-through failed", "err", err)
			m.closeInput()
			return false
		}
		m.closeInput()
		m.focus = panelTasks
		m.taskCursor = m.indexOfTask(task.ID)
		m.elementCursor = 0
		m.setStatus("Task added", false)
	case modeEditTask:
		if text == "" {
			m.setStatus("Task text must not be empty", true)
			return false
		}
		_, err := m.svc.UpdateText(m.editID, text)
		m.closeInput()
		m.finishMutation(err, "Task updated")
	case modeSearch:
		m.applySearch(text)
		m.closeInput()
		if text == "" {
			m.setStatus("Search cleared", false)
		} else {
			m.setStatus("Search: \""+text+"\"", false)
		}
	case modeAddProject:
		if text == "" {
			m.closeInput()
			return false
		}
		_, err := m.svc.AddProject(m.editID, text)
		if errors.Is(err, app.ErrInvalidTag) {
			m.setStatus("Tags must be a single word", true)
			return false
		}
		m.closeInput()
		m.finishMutation(err, "Project +"+strings.TrimPrefix(text, "+")+" added")
	case modeAddContext:
		if text == "" {
			m.closeInput()
			return false
		}
		_, err := m.svc.AddContext(m.editID, text)
		if errors.Is(err, app.ErrInvalidTag) {
			m.setStatus("Tags must be a single word", true)
			return false
		}
		m.closeInput()
		m.finishMutation(err, "Context @"+strings.TrimPrefix(text, "@")+" added")
	case modeAddDue:
		if text == "" {
			m.closeInput()
			return false
		}
		_, err := m.svc.SetDueDate(m.editID, text)
		if errors.Is(err, app.ErrInvalidDate) {
			m.setStatus("Dates use YYYY-MM-DD", true)
			return false
		}
		m.closeInput()
		m.finishMutation(err, "Due date set to "+text)
	case modeCommand:
		m.closeInput()
		return m.runCommand(text)
	}
	return false
}

func (m *Model) runCommand(raw string) bool {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "q", "quit":
		return true
	case "w", "write":
		if err := m.svc.Save(); err != nil {
			m.setStatus("Save failed: "+err.Error(), true)
			log.Error("save failed", "err", err)
		} else {
			m.setStatus("Saved", false)
		}
	case "wq", "x":
		if err := m.svc.Save(); err != nil {
			m.setStatus("Save failed: "+err.Error(), true)
			log.Error("save failed", "err", err)
			return false
		}
		return true
	case "help":
		m.mode = modeHelp
	case "set", "settings":
		m.mode = modeSettings
		m.settingsCursor = 0
	case "sort":
		if len(fields) < 2 {
			m.setStatus("Usage: sort priority|date|project|context", true)
			break
		}
		mode := model.SortMode(strings.ToLower(fields[1]))
		switch mode {
		case model.SortPriority, model.SortDate, model.SortProject, model.SortContext:
			m.svc.SetSortMode(mode)
			m.taskCursor = 0
			m.elementCursor = 0
			m.setStatus("Sort: "+string(mode), false)
		default:
			m.setStatus("Unknown sort mode: "+fields[1], true)
		}
	case "u", "undo":
		m.undoLast()
	case "theme":
		if len(fields) < 2 {
			m.setStatus("Usage: theme "+strings.Join(themeNames(), "|"), true)
			break
		}
		m.applyTheme(fields[1])
	case "refresh", "reload":
		if err := m.svc.Reload(); err != nil {
			m.setStatus("Reload failed: "+err.Error(), true)
		} else {
			m.taskCursor = 0
			m.elementCursor = 0
			m.setStatus("Reloaded from file • u to undo", false)
		}
	default:
		log.Warn("unknown command", "command", cmd)
		m.setStatus("Unknown command: "+cmd, true)
	}
	return false
}

func (m *Model) applyTheme(name string) {
	if !setTheme(name) {
		m.setStatus("Unknown theme: "+name+" (have "+strings.Join(themeNames(), ", ")+")", true)
		return
	}
	m.cfg.Theme = currentTheme
	m.saveConfig()
	m.setStatus("Theme: "+currentTheme, false)
}

func (m *Model) saveConfig() {
	if m.cfgPath == "" {
		return
	}
	if err := config.Save(m.cfgPath, m.cfg); err != nil {
		m.setStatus("Settings applied, but saving config failed: "+err.Error(), true)
		log.Error("config save failed", "err", err, "path", m.cfgPath)
	}
}

func (m *Model) startInput(mode uiMode, label, value, placeholder string) {
	m.mode = mode
	m.inputLabel = label
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) startTagInput(mode uiMode, label, placeholder string) {
	task, ok := m.selectedTask()
	if !ok || m.focus != panelTasks {
		return
	}
	m.editID = task.ID
	m.startInput(mode, label, "", placeholder)
}

func (m *Model) startEditTask() {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	m.editID = task.ID
	m.startInput(modeEditTask, "Edit task", task.Text, "")
}

func (m *Model) startDeleteConfirm() {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	m.mode = modeConfirmDelete
	m.confirmID = task.ID
	m.confirmText = truncateRunes(task.Text, 48)
}

func (m *Model) cancelInput() {
	if m.mode == modeSearch {
		m.svc.SetSearch(m.searchPrev)
		m.taskCursor = m.searchPrevCursor
		m.elementCursor = m.searchPrevElement
		m.clampCursors()
	}
	m.closeInput()
	m.setStatus("Cancelled", false)
}

func (m *Model) closeInput() {
	m.mode = modeNormal
	m.inputLabel = ""
	m.input.Blur()
	m.input.SetValue("")
	m.editID = 0
}

func (m *Model) applySearch(query string) {
	m.svc.SetSearch(strings.TrimSpace(query))
	m.taskCursor = 0
	m.elementCursor = 0
	m.clampCursors()
}

// stepBack is the layered Escape/q action: leave a side panel first,
// then clear the active filter and search, and only then quit.
func (m *Model) stepBack() bool {
	if m.focus != panelTasks {
		m.focus = panelTasks
		m.taskCursor = 0
		m.elementCursor = 0
		m.setStatus("Focus: Tasks", false)
		return false
	}
	if m.svc.Filter().Active() || m.svc.Search() != "" {
		m.svc.ClearFilter()
		m.svc.SetSearch("")
		m.taskCursor = 0
		m.elementCursor = 0
		m.setStatus("Filter cleared", false)
		return false
	}
	return true
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % panelCount
	if m.focus == panelTasks {
		m.taskCursor = 0
	} else {
		m.sideCursor = 0
	}
	m.elementCursor = 0
	m.setStatus("Focus: "+m.focus.String(), false)
}

func (m *Model) moveCursor(delta int) {
	count := m.focusedCount()
	if count == 0 {
		return
	}
	if m.focus == panelTasks {
		m.taskCursor = clamp(m.taskCursor+delta, 0, count-1)
		m.elementCursor = 0
		return
	}
	m.sideCursor = clamp(m.sideCursor+delta, 0, count-1)
}

func (m *Model) jumpCursor(idx int) {
	if idx < 0 {
		idx = 0
	}
	if m.focus == panelTasks {
		m.taskCursor = idx
		m.elementCursor = 0
	} else {
		m.sideCursor = idx
	}
	m.clampCursors()
}

func (m *Model) moveElement(delta int) {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	m.elementCursor = clamp(m.elementCursor+delta, 0, len(taskElements(task))-1)
}

// applyPanelSelection is Enter on a side panel: it installs that
// panel's filter and hands focus back to the Tasks panel.
func (m *Model) applyPanelSelection() {
	switch m.focus {
	case panelPriorities:
		syms := model.PrioritySymbols(m.svc.PriorityMode())
		if m.sideCursor >= len(syms) {
			return
		}
		m.svc.SetFilter(model.Filter{Kind: model.FilterPriority, Value: syms[m.sideCursor]})
		m.setStatus("Filter: priority ("+syms[m.sideCursor]+")", false)
	case panelStats:
		kinds := []model.FilterKind{model.FilterDue, model.FilterDoneToday, model.FilterActive}
		if m.sideCursor >= len(kinds) {
			return
		}
		m.svc.SetFilter(model.Filter{Kind: kinds[m.sideCursor]})
		m.setStatus("Filter: "+filterLabel(m.svc.Filter()), false)
	case panelProjects:
		names := m.svc.AllProjects()
		if m.sideCursor >= len(names) {
			return
		}
		m.svc.SetFilter(model.Filter{Kind: model.FilterProject, Value: names[m.sideCursor]})
		m.setStatus("Filter: +"+names[m.sideCursor], false)
	case panelContexts:
		names := m.svc.AllContexts()
		if m.sideCursor >= len(names) {
			return
		}
		m.svc.SetFilter(model.Filter{Kind: model.FilterContext, Value: names[m.sideCursor]})
		m.setStatus("Filter: @"+names[m.sideCursor], false)
	default:
		return
	}
	m.focus = panelTasks
	m.taskCursor = 0
	m.elementCursor = 0
}

func (m *Model) toggleSelected() {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	updated, err := m.svc.ToggleCompletion(task.ID)
	success := "Task completed"
	if err == nil && !updated.Completed {
		success = "Task reopened"
	}
	m.finishMutation(err, success)
}

func (m *Model) setPriorityFromKey(pressed string) {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	sym, ok := prioritySymbolForKey(pressed, m.svc.PriorityMode())
	if !ok {
		return
	}
	_, err := m.svc.SetPriority(task.ID, sym)
	if errors.Is(err, app.ErrInvalidPriority) {
		return
	}
	m.finishMutation(err, "Priority set to ("+sym+")")
}

// prioritySymbolForKey maps a Normal-mode keypress to a priority
// symbol of the given mode. Letter mode takes shifted letters; number
// mode takes digits and shifted digits (!@#$%^&*() → 1..9,0).
func prioritySymbolForKey(pressed string, mode model.PriorityMode) (string, bool) {
	if len(pressed) != 1 {
		return "", false
	}
	c := pressed[0]
	if mode == model.PriorityLetters {
		if c >= 'A' && c <= 'Z' {
			return string(c), true
		}
		return "", false
	}
	if c >= '0' && c <= '9' {
		return string(c), true
	}
	const shifted = "!@#$%^&*()"
	if i := strings.IndexByte(shifted, c); i >= 0 {
		return string(byte('0' + (i+1)%10)), true
	}
	return "", false
}

func (m *Model) deleteSelectedElement() {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	els := taskElements(task)
	if m.elementCursor >= len(els) {
		m.elementCursor = len(els) - 1
	}
	el := els[m.elementCursor]

	var err error
	switch el.kind {
	case elemPriority:
		if task.Priority == "" {
			return
		}
		_, err = m.svc.ClearPriority(task.ID)
	case elemCreated:
		_, err = m.svc.ClearCreationDate(task.ID)
	case elemProject:
		_, err = m.svc.RemoveProject(task.ID, el.value)
	case elemContext:
		_, err = m.svc.RemoveContext(task.ID, el.value)
	case elemMeta:
		_, err = m.svc.RemoveMetadata(task.ID, el.value)
	default:
		// the checkbox and the task text are never deletable
		return
	}
	m.finishMutation(err, "Removed "+el.label+" • u to undo")

	if cur, ok := m.selectedTask(); ok {
		if n := len(taskElements(cur)); m.elementCursor >= n {
			m.elementCursor = n - 1
		}
	}
}

func (m *Model) yankSelected() {
	if m.focus != panelTasks {
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	if _, err := m.svc.Yank(task.ID); err != nil {
		return
	}
	if err := clipboard.WriteAll(todotxt.SerializeTask(task)); err != nil {
		log.Debug("clipboard copy failed", "err", err)
	}
	m.setStatus("Task yanked • P pastes", false)
}

func (m *Model) pasteYanked() {
	task, err := m.svc.PasteYanked()
	if errors.Is(err, app.ErrNothingToPaste) {
		return
	}
	if err == nil {
		m.focus = panelTasks
		m.taskCursor = m.indexOfTask(task.ID)
		m.elementCursor = 0
	}
	m.finishMutation(err, "Task pasted • u to undo")
}

func (m *Model) undoLast() {
	err := m.svc.Undo()
	switch {
	case err == nil:
		m.elementCursor = 0
		m.setStatus("Undid last change", false)
	case errors.Is(err, app.ErrNothingToUndo):
		m.setStatus("Nothing to undo", false)
	default:
		m.setStatus("Undo applied, but saving failed: "+err.Error(), true)
		log.Error("write-through failed", "err", err)
	}
	m.clampCursors()
}

// finishMutation turns a service error into status feedback. Unknown
// ids mean the cursor went stale, which the next render repairs; any
// other error is the write-through failing after the in-memory change
// already committed.
func (m *Model) finishMutation(err error, success string) {
	switch {
	case err == nil:
		m.setStatus(success, false)
	case errors.Is(err, app.ErrTaskNotFound):
	default:
		m.setStatus("Change applied, but saving failed: "+err.Error(), true)
		log.Error("write-through failed", "err", err)
	}
	m.clampCursors()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) focusedCount() int {
	switch m.focus {
	case panelPriorities:
		return len(model.PrioritySymbols(m.svc.PriorityMode()))
	case panelStats:
		return 3
	case panelProjects:
		return len(m.svc.AllProjects())
	case panelContexts:
		return len(m.svc.AllContexts())
	default:
		return len(m.svc.VisibleTasks())
	}
}

func (m *Model) selectedTask() (model.Task, bool) {
	tasks := m.svc.VisibleTasks()
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	if m.taskCursor < 0 || m.taskCursor >= len(tasks) {
		m.taskCursor = 0
	}
	return tasks[m.taskCursor], true
}

func (m *Model) indexOfTask(taskID int) int {
	tasks := m.svc.VisibleTasks()
	for i, t := range tasks {
		if t.ID == taskID {
			return i
		}
	}
	if len(tasks) == 0 {
		return 0
	}
	return len(tasks) - 1
}

func (m *Model) clampCursors() {
	tasks := m.svc.VisibleTasks()
	if len(tasks) == 0 {
		m.taskCursor = 0
		m.elementCursor = 0
	} else {
		m.taskCursor = clamp(m.taskCursor, 0, len(tasks)-1)
		m.elementCursor = clamp(m.elementCursor, 0, len(taskElements(tasks[m.taskCursor]))-1)
	}
	if m.focus != panelTasks {
		if count := m.focusedCount(); count == 0 {
			m.sideCursor = 0
		} else {
			m.sideCursor = clamp(m.sideCursor, 0, count-1)
		}
	}
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	viewW := m.viewportWidth()
	header := m.renderHeader(viewW)

	panelH := m.height - 6
	if panelH < 8 {
		panelH = 8
	}
	innerH := panelH - 2
	if innerH < 6 {
		innerH = 6
	}
	sideW, taskW := paneWidths(viewW - 3)

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSidebar(sideW, innerH),
		lipgloss.NewStyle().Foreground(colorBorder).Render("│"),
		m.renderTasksPanel(taskW, innerH),
	)

	frameColor := colorBorder
	if m.mode == modeNormal {
		frameColor = colorBorderFocus
	}
	panes := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(viewW - 2).
		Height(panelH).
		Render(body)

	switch m.mode {
	case modeHelp:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(popupWidth(viewW)))
	case modeSettings:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderSettingsOverlay(popupWidth(viewW)))
	case modeFormatDialog:
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderFormatDialog(popupWidth(viewW)))
	}

	parts := []string{header, panes, m.renderFooter(viewW)}
	if prompt := m.renderPrompt(viewW); prompt != "" {
		parts = append(parts, prompt)
	}
	return strings.Join(parts, "\n")
}

func (m *Model) viewportWidth() int {
	// One column is held back so the rightmost border never wraps on
	// terminals that clip the last cell.
	if m.width > 1 {
		return m.width - 1
	}
	return 1
}

func paneWidths(total int) (int, int) {
	if total <= 0 {
		return 24, 40
	}
	left := total / 4
	if left < 22 {
		left = 22
	}
	if left > 30 {
		left = 30
	}
	right := total - left
	if right < 20 {
		right = 20
		left = total - right
		if left < 12 {
			left = 12
		}
	}
	return left, right
}

func popupWidth(viewW int) int {
	w := viewW - 8
	if w > 76 {
		w = 76
	}
	if w < 40 {
		w = viewW - 2
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (m *Model) renderHeader(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("todotui")

	parts := []string{"sort: " + string(m.svc.SortMode())}
	if f := m.svc.Filter(); f.Active() {
		parts = append(parts, "filter: "+filterLabel(f))
	}
	if q := m.svc.Search(); q != "" {
		parts = append(parts, "search: \""+q+"\"")
	}
	if m.svc.ShowCompleted() {
		parts = append(parts, "completed shown")
	}
	summary := lipgloss.NewStyle().Foreground(colorMuted).Render("  " + strings.Join(parts, " · "))
	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, title, summary))
}

func (m *Model) renderSidebar(width, height int) string {
	const statsH = 4
	rest := height - statsH
	if rest < 9 {
		rest = 9
	}
	prioH := rest / 2
	projH := (rest - prioH) / 2
	ctxH := rest - prioH - projH

	sections := []string{
		m.renderPrioritiesPanel(prioH),
		m.renderStatsPanel(),
		m.renderTagPanel("Projects", panelProjects, "+", m.svc.AllProjects(), projH),
		m.renderTagPanel("Contexts", panelContexts, "@", m.svc.AllContexts(), ctxH),
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxWidth(width).Render(strings.Join(sections, "\n"))
}

func (m *Model) renderPrioritiesPanel(height int) string {
	syms := model.PrioritySymbols(m.svc.PriorityMode())
	counts := make(map[string]int)
	for _, t := range m.svc.Tasks() {
		if t.Priority != "" {
			counts[t.Priority]++
		}
	}

	focused := m.focus == panelPriorities
	lines := []string{panelTitle("Priorities", focused)}
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	anchor := 0
	if focused {
		anchor = m.sideCursor
	}
	start, end := windowBounds(len(syms), anchor, rows)
	for i := start; i < end; i++ {
		marker := " "
		if focused && i == m.sideCursor {
			marker = "▸"
		}
		line := fmt.Sprintf("%s (%s) %d", marker, syms[i], counts[syms[i]])
		if focused && i == m.sideCursor {
			line = lipgloss.NewStyle().Bold(true).Foreground(colorSelected).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatsPanel() string {
	st := m.svc.Stats()
	focused := m.focus == panelStats
	rows := []string{
		fmt.Sprintf("due or overdue %d", st.DueOrOverdue),
		fmt.Sprintf("done today     %d", st.CompletedToday),
		fmt.Sprintf("active         %d/%d", st.Active, st.Total),
	}

	lines := []string{panelTitle("Stats", focused)}
	for i, row := range rows {
		marker := " "
		if focused && i == m.sideCursor {
			marker = "▸"
		}
		line := marker + " " + row
		if focused && i == m.sideCursor {
			line = lipgloss.NewStyle().Bold(true).Foreground(colorSelected).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTagPanel(title string, panel focusPanel, prefix string, names []string, height int) string {
	focused := m.focus == panel
	lines := []string{panelTitle(title, focused)}

	if len(names) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorMuted).Render("  none yet"))
		return strings.Join(lines, "\n")
	}

	tagColor := colorProject
	if prefix == "@" {
		tagColor = colorContext
	}
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	anchor := 0
	if focused {
		anchor = m.sideCursor
	}
	start, end := windowBounds(len(names), anchor, rows)
	for i := start; i < end; i++ {
		marker := " "
		if focused && i == m.sideCursor {
			marker = "▸"
		}
		tag := lipgloss.NewStyle().Foreground(tagColor).Render(prefix + names[i])
		line := marker + " " + tag
		if focused && i == m.sideCursor {
			line = marker + " " + lipgloss.NewStyle().Bold(true).Foreground(colorSelected).Render(prefix+names[i])
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTasksPanel(width, height int) string {
	tasks := m.svc.VisibleTasks()
	total := len(m.svc.Tasks())
	focused := m.focus == panelTasks

	title := fmt.Sprintf("Tasks (%d/%d)", len(tasks), total)
	lines := []string{panelTitle(title, focused)}

	if len(tasks) == 0 {
		empty := "No tasks yet. Press n to add one."
		switch {
		case m.svc.Search() != "":
			empty = "No tasks match the search."
		case m.svc.Filter().Active():
			empty = "No tasks match the current filter."
		case total > 0:
			empty = "All tasks are completed. Press v to show them."
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(colorMuted).Render(empty))
	} else {
		rows := height - 1
		if rows < 1 {
			rows = 1
		}
		start, end := windowBounds(len(tasks), m.taskCursor, rows)
		today := todotxt.Today()
		for i := start; i < end; i++ {
			selected := focused && i == m.taskCursor
			lines = append(lines, m.renderTaskLine(tasks[i], selected, today))
		}
	}

	return lipgloss.NewStyle().Width(width).Height(height).MaxWidth(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTaskLine(t model.Task, selected bool, today string) string {
	marker := "  "
	if selected {
		marker = "▸ "
	}

	els := taskElements(t)
	parts := make([]string, 0, len(els))
	for i, el := range els {
		st := m.elementStyle(el, t, today)
		if selected {
			st = st.Bold(true)
		}
		if selected && i == m.elementCursor {
			st = st.Reverse(true)
		}
		label := el.label
		if label == "" {
			label = " "
		}
		parts = append(parts, st.Render(label))
	}

	markerStyle := lipgloss.NewStyle()
	if selected {
		markerStyle = markerStyle.Bold(true).Foreground(colorSelected)
	}
	return markerStyle.Render(marker) + strings.Join(parts, " ")
}

func (m *Model) elementStyle(el taskElement, t model.Task, today string) lipgloss.Style {
	st := lipgloss.NewStyle()
	switch el.kind {
	case elemPriority:
		if t.Priority == "" {
			st = st.Foreground(colorMuted)
		} else {
			st = st.Foreground(colorPriority)
		}
	case elemCreated:
		st = st.Foreground(colorMeta)
	case elemProject:
		st = st.Foreground(colorProject)
	case elemContext:
		st = st.Foreground(colorContext)
	case elemMeta:
		if m.showOverdue && el.value == "due" && !t.Completed && t.Metadata["due"] <= today {
			st = st.Foreground(colorOverdue).Bold(true)
		} else {
			st = st.Foreground(colorMeta)
		}
	}
	if t.Completed {
		st = st.Faint(true)
	}
	return st
}

func (m *Model) renderFooter(width int) string {
	statusText := strings.TrimSpace(m.status)
	if statusText == "" {
		statusText = "Ready"
	}
	statusStyle := lipgloss.NewStyle().Foreground(colorStatusOK)
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(colorStatusErr)
	}
	statusLine := lipgloss.NewStyle().MaxWidth(width).Render(statusStyle.Render(truncateRunes(statusText, width)))
	hints := lipgloss.NewStyle().MaxWidth(width).Render(m.help.View(m.keys))
	return statusLine + "\n" + hints
}

func (m *Model) renderPrompt(width int) string {
	var line string
	switch m.mode {
	case modeNewTask, modeEditTask, modeSearch, modeAddProject, modeAddContext, modeAddDue:
		line = m.inputLabel + ": " + m.input.View()
	case modeCommand:
		line = ":" + m.input.View()
	case modeConfirmDelete:
		line = fmt.Sprintf("Delete \"%s\"? [y/N]", m.confirmText)
	default:
		return ""
	}
	return lipgloss.NewStyle().Foreground(colorPrompt).MaxWidth(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("Key bindings")
	section := lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	line := lipgloss.NewStyle().Foreground(colorMuted)

	rows := []string{
		title,
		"",
		m.help.FullHelpView(m.keys.FullHelp()),
		"",
		section.Render("Priorities"),
		line.Render("  shift+letter sets (A)..(Z) in letter mode"),
		line.Render("  digits and shift+digits set (0)..(9) in number mode"),
		"",
		section.Render("Commands (:)"),
		line.Render("  q quit · w write · wq save and quit · help · set"),
		line.Render("  sort <mode> · u undo · theme <name> · refresh"),
		"",
		line.Render("Press any key to close."),
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorderFocus).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(rows, "\n"))
}

func (m *Model) renderSettingsOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("Settings")

	rows := []struct {
		name  string
		value string
	}{
		{"Priority mode", string(m.svc.PriorityMode())},
		{"Theme", currentTheme},
	}

	lines := []string{title, ""}
	for i, row := range rows {
		marker := " "
		if i == m.settingsCursor {
			marker = "▸"
		}
		line := fmt.Sprintf("%s %-14s %s", marker, row.name, row.value)
		if i == m.settingsCursor {
			line = lipgloss.NewStyle().Bold(true).Foreground(colorSelected).Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(colorMuted).Render("j/k move · enter/h/l change · esc close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorderFocus).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFormatDialog(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("Priority format mismatch")
	line := lipgloss.NewStyle().Foreground(colorMuted)

	lines := []string{
		title,
		"",
		fmt.Sprintf("The file uses %s priorities; the configured mode is %s.", formatLabel(m.detected), m.svc.PriorityMode()),
		"",
		"  c  convert the file to the configured mode",
	}
	if m.detected == todotxt.FormatLetter || m.detected == todotxt.FormatNumber {
		lines = append(lines, "  s  switch the configured mode to match the file")
	}
	lines = append(lines,
		"  i  ignore for this session",
		"",
		line.Render("esc also ignores"),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorderFocus).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

func panelTitle(title string, active bool) string {
	base := lipgloss.NewStyle().Bold(true)
	if !active {
		return base.Foreground(colorTitle).Render(title)
	}
	text := base.Foreground(colorSelected).Render(title)
	marker := lipgloss.NewStyle().Bold(true).Foreground(colorBorderFocus).Render("*")
	return lipgloss.JoinHorizontal(lipgloss.Left, text, " ", marker)
}

func filterLabel(f model.Filter) string {
	switch f.Kind {
	case model.FilterPriority:
		return "priority (" + f.Value + ")"
	case model.FilterProject:
		return "+" + f.Value
	case model.FilterContext:
		return "@" + f.Value
	case model.FilterDue:
		return "due or overdue"
	case model.FilterDoneToday:
		return "done today"
	case model.FilterActive:
		return "active only"
	default:
		return "none"
	}
}

func formatLabel(f todotxt.Format) string {
	switch f {
	case todotxt.FormatLetter:
		return "letter"
	case todotxt.FormatNumber:
		return "number"
	case todotxt.FormatMixed:
		return "mixed letter and number"
	default:
		return "no"
	}
}

type elementKind int

const (
	elemCheckbox elementKind = iota
	elemPriority
	elemCreated
	elemText
	elemProject
	elemContext
	elemMeta
)

// taskElement is one addressable sub-token of a rendered task row.
// value carries what a delete needs: the tag name or metadata key.
type taskElement struct {
	kind  elementKind
	label string
	value string
}

func taskElements(t model.Task) []taskElement {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	els := []taskElement{{kind: elemCheckbox, label: check}}

	// The priority slot is always present so rows stay aligned.
	pri := "( )"
	if t.Priority != "" {
		pri = "(" + t.Priority + ")"
	}
	els = append(els, taskElement{kind: elemPriority, label: pri, value: t.Priority})

	if t.CreationDate != "" {
		els = append(els, taskElement{kind: elemCreated, label: t.CreationDate, value: t.CreationDate})
	}
	els = append(els, taskElement{kind: elemText, label: bareText(t.Text)})
	for _, p := range t.Projects {
		els = append(els, taskElement{kind: elemProject, label: "+" + p, value: p})
	}
	for _, c := range t.Contexts {
		els = append(els, taskElement{kind: elemContext, label: "@" + c, value: c})
	}
	for _, k := range metadataKeys(t.Metadata) {
		els = append(els, taskElement{kind: elemMeta, label: k + ":" + t.Metadata[k], value: k})
	}
	return els
}

// bareText strips tag and metadata tokens so they can render as their
// own styled elements instead of appearing twice.
func bareText(text string) string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if isTagToken(tok) || isMetaToken(tok) {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func isTagToken(tok string) bool {
	return len(tok) > 1 && (tok[0] == '+' || tok[0] == '@')
}

func isMetaToken(tok string) bool {
	if tok == "" || tok[0] == '+' || tok[0] == '@' {
		return false
	}
	i := strings.IndexByte(tok, ':')
	if i <= 0 || i != strings.LastIndexByte(tok, ':') {
		return false
	}
	return i < len(tok)-1
}

func metadataKeys(meta map[string]string) []string {
	if len(meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func windowBounds(count, cursor, max int) (int, int) {
	if count <= 0 {
		return 0, 0
	}
	if max <= 0 || count <= max {
		return 0, count
	}
	start := cursor - max/2
	if start < 0 {
		start = 0
	}
	if start > count-max {
		start = count - max
	}
	return start, start + max
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
