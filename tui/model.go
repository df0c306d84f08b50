// Package tui is the interactive terminal front-end of the studio.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"mystery_story_studio/generator"
	"mystery_story_studio/publisher"
)

type focusArea int

const (
	focusPremise focusArea = iota
	focusInstruction
)

// Messages

type snapshotMsg generator.Snapshot

type opDoneMsg struct {
	op  string
	err error
}

type exportedMsg struct {
	name     string
	location string
	size     int
	err      error
}

type copiedMsg struct{ err error }

// Model drives one session. Operations run as commands; every state change
// reaches the model as a snapshotMsg through the session subscription.
type Model struct {
	sess     *generator.Session
	pub      *publisher.Publisher
	updates  <-chan generator.Snapshot
	copyText func(string) error

	snap        generator.Snapshot
	running     bool
	premise     textarea.Model
	instruction textarea.Model
	story       viewport.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	focus       focusArea
	status      string

	width  int
	height int
}

// subscribe feeds the latest snapshot into a one-slot channel. A slow UI only
// ever misses intermediate states.
func subscribe(sess *generator.Session) (<-chan generator.Snapshot, func()) {
	ch := make(chan generator.Snapshot, 1)
	cancel := sess.Subscribe(func(snap generator.Snapshot) {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	})
	return ch, cancel
}

// New builds the model. The returned func ends the session subscription.
func New(sess *generator.Session, pub *publisher.Publisher) (Model, func()) {
	updates, cancel := subscribe(sess)

	premise := textarea.New()
	premise.Placeholder = "Escribe la idea del cuento o pulsa ctrl+g para generar una..."
	premise.ShowLineNumbers = false
	premise.SetHeight(3)
	premise.Focus()

	instruction := textarea.New()
	instruction.Placeholder = "Describe el cambio que quieres en el cuento..."
	instruction.ShowLineNumbers = false
	instruction.SetHeight(2)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	snap := sess.Snapshot()
	premise.SetValue(snap.Premise)

	m := Model{
		sess:        sess,
		pub:         pub,
		updates:     updates,
		copyText:    clipboard.WriteAll,
		snap:        snap,
		premise:     premise,
		instruction: instruction,
		story:       viewport.New(80, 12),
		spinner:     sp,
		help:        help.New(),
		keys:        defaultKeyMap(),
	}
	m.refreshStory()
	return m, cancel
}

// Run starts the full-screen program and blocks until the user quits.
func Run(sess *generator.Session, pub *publisher.Publisher) error {
	m, cancel := New(sess, pub)
	defer cancel()
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func waitForSnapshot(ch <-chan generator.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForSnapshot(m.updates))
}

func (m Model) busy() bool {
	return m.running || m.snap.Busy()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case snapshotMsg:
		prev := m.snap
		m.snap = generator.Snapshot(msg)
		if m.snap.Premise != prev.Premise && m.snap.Premise != m.premise.Value() {
			m.premise.SetValue(m.snap.Premise)
		}
		m.refreshStory()
		if m.snap.Busy() {
			m.story.GotoBottom()
		}
		cmds = append(cmds, waitForSnapshot(m.updates))

	case opDoneMsg:
		m.running = false
		if msg.op == "revise" && !errors.Is(msg.err, generator.ErrBusy) {
			m.instruction.Reset()
		}
		if msg.err != nil {
			m.status = generator.UserMessage(msg.err)
		} else {
			m.status = opLabel(msg.op) + " listo."
		}

	case exportedMsg:
		m.running = false
		if msg.err != nil {
			m.status = generator.UserMessage(msg.err)
		} else {
			m.status = fmt.Sprintf("Guardado %s (%s) en %s", msg.name, humanize.Bytes(uint64(msg.size)), msg.location)
		}

	case copiedMsg:
		if msg.err != nil {
			m.status = "No se pudo copiar al portapapeles."
		} else {
			m.status = "Cuento copiado al portapapeles."
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		var cmd tea.Cmd
		if m.focus == focusPremise {
			m.premise, cmd = m.premise.Update(msg)
		} else {
			m.instruction, cmd = m.instruction.Update(msg)
		}
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.story, cmd = m.story.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes the global bindings. Triggers are ignored while an
// operation is running.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return nil, true
	case key.Matches(msg, m.keys.Copy):
		if strings.TrimSpace(m.snap.Story) == "" {
			return nil, true
		}
		story, copyFn := m.snap.Story, m.copyText
		return func() tea.Msg { return copiedMsg{err: copyFn(story)} }, true
	case key.Matches(msg, m.keys.Idea, m.keys.Create, m.keys.Revise, m.keys.Document, m.keys.Audio):
		if m.busy() {
			return nil, true
		}
		return m.trigger(msg), true
	}
	return nil, false
}

func (m *Model) trigger(msg tea.KeyMsg) tea.Cmd {
	sess, pub := m.sess, m.pub
	ctx := context.Background()

	switch {
	case key.Matches(msg, m.keys.Idea):
		return m.start("idea", func() error {
			_, err := sess.GenerateIdea(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Create):
		premise := m.premise.Value()
		if strings.TrimSpace(premise) == "" {
			m.status = generator.UserMessage(generator.ErrValidation)
			return nil
		}
		return m.start("story", func() error {
			return sess.BeginGeneration(ctx, premise)
		})

	case key.Matches(msg, m.keys.Revise):
		instruction := m.instruction.Value()
		if strings.TrimSpace(instruction) == "" || strings.TrimSpace(m.snap.Story) == "" {
			m.status = generator.UserMessage(generator.ErrValidation)
			return nil
		}
		return m.start("revise", func() error {
			return sess.BeginRevision(ctx, instruction)
		})

	case key.Matches(msg, m.keys.Document):
		story := m.snap.Story
		if strings.TrimSpace(story) == "" {
			m.status = generator.UserMessage(generator.ErrValidation)
			return nil
		}
		m.running = true
		m.status = ""
		return func() tea.Msg {
			return publishArtifact(ctx, pub, publisher.DocumentArtifact(story))
		}

	case key.Matches(msg, m.keys.Audio):
		if strings.TrimSpace(generator.BodyOf(m.snap.Story)) == "" {
			m.status = generator.UserMessage(generator.ErrValidation)
			return nil
		}
		m.running = true
		m.status = ""
		return func() tea.Msg {
			narration, err := sess.GenerateAudio(ctx)
			if err != nil {
				return exportedMsg{err: err}
			}
			a, err := publisher.AudioArtifact(narration)
			if err != nil {
				return exportedMsg{err: err}
			}
			return publishArtifact(ctx, pub, a)
		}
	}
	return nil
}

func (m *Model) start(op string, run func() error) tea.Cmd {
	m.running = true
	m.status = ""
	return func() tea.Msg {
		return opDoneMsg{op: op, err: run()}
	}
}

func publishArtifact(ctx context.Context, pub *publisher.Publisher, a publisher.Artifact) tea.Msg {
	if pub == nil {
		return exportedMsg{err: errors.New("no export store configured")}
	}
	location, err := pub.Publish(ctx, a)
	return exportedMsg{name: a.Name, location: location, size: len(a.Data), err: err}
}

func opLabel(op string) string {
	switch op {
	case "idea":
		return "Idea"
	case "story":
		return "Cuento"
	case "revise":
		return "Revisión"
	default:
		return op
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusPremise {
		m.focus = focusInstruction
		m.premise.Blur()
		m.instruction.Focus()
		return
	}
	m.focus = focusPremise
	m.instruction.Blur()
	m.premise.Focus()
}

func (m *Model) layout() {
	w := max(m.width-4, 20)
	m.premise.SetWidth(w)
	m.instruction.SetWidth(w)
	m.help.Width = m.width

	// header, labels, two text areas, status and help
	reserved := 1 + 3 + m.premise.Height() + m.instruction.Height() + 2 + 2
	m.story.Width = w
	m.story.Height = max(m.height-reserved-2, 3)
	m.refreshStory()
}

func (m *Model) refreshStory() {
	story := m.snap.Story
	if story == "" {
		m.story.SetContent(labelStyle.Render("Todavía no hay cuento."))
		return
	}
	content := story
	if title, body := generator.SplitTitle(story); title != "" {
		content = titleStyle.Render(strings.TrimSpace(title)) + "\n\n" + body
	}
	m.story.SetContent(lipgloss.NewStyle().Width(max(m.story.Width-2, 10)).Render(content))
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Estudio de Cuentos de Misterio"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Idea"))
	b.WriteString("\n")
	b.WriteString(m.premise.View())
	b.WriteString("\n")
	b.WriteString(storyStyle.Render(m.story.View()))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Revisión"))
	b.WriteString("\n")
	b.WriteString(m.instruction.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) statusLine() string {
	if m.busy() {
		label := m.snap.Phase.String()
		if !m.snap.Busy() {
			label = "trabajando"
		}
		return statusStyle.Render(fmt.Sprintf("%s %s (%d caracteres)", m.spinner.View(), label, len([]rune(m.snap.Story))))
	}
	if m.snap.Error != "" {
		return errorStyle.Render(m.snap.Error)
	}
	return statusStyle.Render(m.status)
}
