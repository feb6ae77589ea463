package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/nskeyed"
	"github.com/wippyai/nskeyed/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type entry struct {
	key string
	val value.Value
}

type crumb struct {
	label    string
	node     value.Value
	selected int
}

type browseModel struct {
	err      error
	filename string
	opts     nskeyed.Options
	node     value.Value
	stack    []crumb
	entries  []entry
	filter   textinput.Model
	filterOn bool
	selected int
	height   int
}

type loadedMsg struct {
	err  error
	root *value.Dict
}

func newBrowseModel(filename string, opts nskeyed.Options) *browseModel {
	ti := textinput.New()
	ti.Placeholder = "filter keys"
	ti.Prompt = "/ "
	ti.Width = 40
	return &browseModel{
		filename: filename,
		opts:     opts,
		filter:   ti,
		height:   24,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.loadArchive
}

func (m *browseModel) loadArchive() tea.Msg {
	root, err := nskeyed.DecodeFile(m.filename, m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{root: root}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.node = msg.root
		m.refreshEntries()

	case tea.KeyMsg:
		if m.filterOn {
			switch msg.String() {
			case "esc":
				m.filterOn = false
				m.filter.SetValue("")
				m.filter.Blur()
				m.refreshEntries()
			case "enter":
				m.filterOn = false
				m.filter.Blur()
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.refreshEntries()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "enter", "right", "l":
			if m.selected < len(m.entries) {
				e := m.entries[m.selected]
				if isContainer(e.val) {
					m.stack = append(m.stack, crumb{label: e.key, node: m.node, selected: m.selected})
					m.node = e.val
					m.selected = 0
					m.filter.SetValue("")
					m.refreshEntries()
				}
			}

		case "esc", "backspace", "left", "h":
			if n := len(m.stack); n > 0 {
				top := m.stack[n-1]
				m.stack = m.stack[:n-1]
				m.node = top.node
				m.selected = top.selected
				m.filter.SetValue("")
				m.refreshEntries()
			}

		case "/":
			m.filterOn = true
			m.filter.Focus()
			return m, textinput.Blink
		}
	}

	return m, nil
}

func (m *browseModel) refreshEntries() {
	m.entries = m.entries[:0]
	needle := strings.ToLower(m.filter.Value())

	add := func(key string, v value.Value) {
		if needle == "" || strings.Contains(strings.ToLower(key), needle) {
			m.entries = append(m.entries, entry{key: key, val: v})
		}
	}

	switch node := m.node.(type) {
	case *value.Dict:
		node.Range(func(k string, v value.Value) bool {
			add(k, v)
			return true
		})
	case value.Array:
		for i, v := range node {
			add("["+strconv.Itoa(i)+"]", v)
		}
	}

	if m.selected >= len(m.entries) {
		m.selected = 0
	}
}

func isContainer(v value.Value) bool {
	switch v.Kind() {
	case value.KindArray, value.KindDict:
		return true
	}
	return false
}

func summarize(v value.Value) string {
	switch tv := v.(type) {
	case value.Null:
		return typeStyle.Render("null")
	case value.Boolean:
		return strconv.FormatBool(bool(tv))
	case value.Integer:
		return tv.String()
	case value.Real:
		return strconv.FormatFloat(float64(tv), 'g', -1, 64)
	case value.String:
		s := string(tv)
		if len(s) > 48 {
			s = s[:45] + "..."
		}
		return strconv.Quote(s)
	case value.Date:
		return time.Time(tv).Format(time.RFC3339)
	case value.Bytes:
		return typeStyle.Render(fmt.Sprintf("%d bytes", len(tv)))
	case value.Array:
		return typeStyle.Render(fmt.Sprintf("array (%d items)", len(tv)))
	case *value.Dict:
		return typeStyle.Render(fmt.Sprintf("dict (%d entries)", tv.Len()))
	}
	return ""
}

func (m *browseModel) breadcrumb() string {
	parts := make([]string, 0, len(m.stack)+1)
	parts = append(parts, "$top")
	for _, c := range m.stack {
		parts = append(parts, c.label)
	}
	return strings.Join(parts, " > ")
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.node == nil {
		return "Loading archive..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("nskeyed"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.breadcrumb()))
	b.WriteString("\n\n")

	if m.filterOn || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	if len(m.entries) == 0 {
		b.WriteString(helpStyle.Render("(empty)"))
		b.WriteString("\n")
	}

	// Window the list so the selection stays visible on small terminals.
	visible := m.height - 8
	if visible < 4 {
		visible = 4
	}
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := start + visible
	if end > len(m.entries) {
		end = len(m.entries)
	}

	for i := start; i < end; i++ {
		e := m.entries[i]
		line := keyStyle.Render(e.key) + " = " + summarize(e.val)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + e.key))
			b.WriteString(" = ")
			b.WriteString(summarize(e.val))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter descend • esc back • / filter • q quit"))
	return b.String()
}

func runInteractive(filename string, opts nskeyed.Options) error {
	p := tea.NewProgram(newBrowseModel(filename, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
