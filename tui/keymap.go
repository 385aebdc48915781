package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap declares every Normal-mode binding in one place so the
// dispatch table and the help footer always agree.
type keyMap struct {
	up            key.Binding
	down          key.Binding
	left          key.Binding
	right         key.Binding
	top           key.Binding
	bottom        key.Binding
	nextPanel     key.Binding
	back          key.Binding
	forceQuit     key.Binding
	selectItem    key.Binding
	edit          key.Binding
	toggleDone    key.Binding
	newTask       key.Binding
	deleteTask    key.Binding
	deleteElement key.Binding
	addProject    key.Binding
	addContext    key.Binding
	addDue        key.Binding
	showDone      key.Binding
	search        key.Binding
	sortMode      key.Binding
	undo          key.Binding
	toggleHelp    key.Binding
	overdue       key.Binding
	command       key.Binding
	yank          key.Binding
	paste         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/↑", "up")),
		down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/↓", "down")),
		left:          key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/←", "element left")),
		right:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/→", "element right")),
		top:           key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "first")),
		bottom:        key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "last")),
		nextPanel:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
		back:          key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc/q", "back/quit")),
		forceQuit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		selectItem:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select/edit")),
		edit:          key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		toggleDone:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle done")),
		newTask:       key.NewBinding(key.WithKeys("n", "a"), key.WithHelp("n/a", "new task")),
		deleteTask:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete task")),
		deleteElement: key.NewBinding(key.WithKeys("delete", "backspace"), key.WithHelp("del", "delete element")),
		addProject:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "add +project")),
		addContext:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "add @context")),
		addDue:        key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "add due date")),
		showDone:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "show completed")),
		search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		sortMode:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),
		undo:          key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		overdue:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "overdue highlight")),
		command:       key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		yank:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank task")),
		paste:         key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "paste yanked")),
	}
}

// ShortHelp feeds the footer hint line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.newTask, k.edit, k.toggleDone, k.search, k.command, k.toggleHelp, k.back,
	}
}

// FullHelp feeds the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right, k.top, k.bottom, k.nextPanel},
		{k.newTask, k.edit, k.toggleDone, k.deleteTask, k.deleteElement, k.yank, k.paste},
		{k.addProject, k.addContext, k.addDue, k.showDone, k.sortMode, k.overdue},
		{k.search, k.command, k.undo, k.toggleHelp, k.back, k.forceQuit},
	}
}
