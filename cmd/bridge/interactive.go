package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// opInfo describes one operation for the UI: its name, parameter labels,
// and result type.
type opInfo struct {
	name       string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name    string
	typeStr string
}

func (o opInfo) signature() string {
	var params []string
	for _, p := range o.params {
		params = append(params, p.name+": "+p.typeStr)
	}
	return fmt.Sprintf("%s(%s) -> %s", o.name, strings.Join(params, ", "), o.resultType)
}

func describeOps() []opInfo {
	return []opInfo{
		{
			name:       bridge.OpSetItem,
			resultType: "bool",
			params: []paramInfo{
				{name: "key", typeStr: "string"},
				{name: "type", typeStr: "string"},
				{name: "value", typeStr: "string"},
				{name: "encrypted", typeStr: "bool"},
			},
		},
		{
			name:       bridge.OpGetItem,
			resultType: "record?",
			params:     []paramInfo{{name: "key", typeStr: "string"}},
		},
		{
			name:       bridge.OpRemoveItem,
			resultType: "bool",
			params:     []paramInfo{{name: "key", typeStr: "string"}},
		},
		{
			name:       bridge.OpClear,
			resultType: "bool",
		},
		{
			name:       bridge.OpGetAllKeys,
			resultType: "list<string>",
		},
		{
			name:       bridge.OpHasKey,
			resultType: "bool",
			params:     []paramInfo{{name: "key", typeStr: "string"}},
		},
	}
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type inspectorModel struct {
	br       *bridge.Bridge
	store    *backend.Local
	ops      []opInfo
	inputs   []textinput.Model
	result   string
	err      error
	selected int
	focusIdx int
	state    modelState
}

func newInspectorModel() (*inspectorModel, error) {
	store := backend.NewLocal()
	br, err := bridge.New(store)
	if err != nil {
		return nil, err
	}
	return &inspectorModel{
		br:    br,
		store: store,
		ops:   describeOps(),
		state: stateSelectOp,
	}, nil
}

type callResultMsg struct {
	err    error
	result string
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.br.Release()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOperation
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *inspectorModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *inspectorModel) callOperation() tea.Msg {
	op := m.ops[m.selected]

	c, ok := m.br.Get(op.name)
	if !ok {
		return callResultMsg{err: fmt.Errorf("operation %s not recognized", op.name)}
	}

	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = convertArg(input.Value(), op.params[i].typeStr)
	}

	result := c.Call(args...)
	if result == nil {
		return callResultMsg{result: "null"}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

func convertArg(value, typeStr string) any {
	if typeStr == "bool" {
		return value == "true" || value == "1"
	}
	return value
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Storage Bridge"))
	b.WriteString(" in-memory store\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatOp(op)))
			} else {
				b.WriteString(cursor + m.formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.storeView())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", opStyle.Render(op.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(op.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(m.storeView())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *inspectorModel) storeView() string {
	keys := m.store.AllKeys()
	if len(keys) == 0 {
		return helpStyle.Render("store: empty")
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("store: %d entries\n", len(keys)))
	for _, key := range keys {
		rec, ok := m.store.GetItem(key)
		if !ok {
			continue
		}
		flag := ""
		if rec.Encrypted {
			flag = " [encrypted]"
		}
		b.WriteString(fmt.Sprintf("  %s = %q %s%s\n",
			keyStyle.Render(key), rec.Value, typeStyle.Render(rec.Type), flag))
	}
	return b.String()
}

func (m *inspectorModel) formatOp(op opInfo) string {
	var params []string
	for _, p := range op.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ") -> " +
		typeStyle.Render(op.resultType)
}

func runInteractive() error {
	m, err := newInspectorModel()
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
