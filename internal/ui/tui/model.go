package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxResources bounds the resource lines kept for display.
const maxResources = 8

// Phase is the display state of one pipeline phase.
type Phase struct {
	Name   string
	Done   bool
	Active bool
	Err    error
}

// Model is the Bubble Tea model of the apply view.
type Model struct {
	StackName string
	Location  string

	Phases    []Phase
	Resources []ResourceMsg
	Progress  ProgressMsg
	LastLog   string

	SpinnerFrame int
	Width        int
	Height       int
	Err          error
	Done         bool
	Quit         bool
	StartTime    time.Time
}

// NewApplyModel creates the model for applying the named phases.
func NewApplyModel(stackName, location string, phases []string) Model {
	m := Model{
		StackName: stackName,
		Location:  location,
		StartTime: time.Now(),
	}
	for _, name := range phases {
		m.Phases = append(m.Phases, Phase{Name: name})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Quit = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case PhaseMsg:
		m = m.updatePhase(msg)

	case ResourceMsg:
		m.Resources = append(m.Resources, msg)
		if len(m.Resources) > maxResources {
			m.Resources = m.Resources[len(m.Resources)-maxResources:]
		}

	case ProgressMsg:
		m.Progress = msg

	case LogMsg:
		m.LastLog = msg.Text

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		m.Done = true
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		for i := range m.Phases {
			if m.Phases[i].Err == nil {
				m.Phases[i].Done = true
				m.Phases[i].Active = false
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}

// updatePhase applies a phase transition. Phases before a started phase
// are complete since the pipeline runs them in order.
func (m Model) updatePhase(msg PhaseMsg) Model {
	phases := make([]Phase, len(m.Phases))
	copy(phases, m.Phases)

	idx := -1
	for i := range phases {
		if phases[i].Name == msg.Phase {
			idx = i
			break
		}
	}
	if idx < 0 {
		phases = append(phases, Phase{Name: msg.Phase})
		idx = len(phases) - 1
	}

	for i := 0; i < idx; i++ {
		if phases[i].Err == nil {
			phases[i].Done = true
			phases[i].Active = false
		}
	}

	p := &phases[idx]
	switch {
	case msg.Err != nil:
		p.Err = msg.Err
		p.Active = false
	case msg.Done:
		p.Done = true
		p.Active = false
	default:
		p.Active = true
	}

	m.Phases = phases
	return m
}

// phaseKey strips the " (i/n)" position suffix the pipeline appends to
// phase names.
func phaseKey(name string) string {
	key, _, _ := strings.Cut(name, " (")
	return key
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
