package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/deploydeck/internal/channel"
	"github.com/waabox/deploydeck/internal/chat"
	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
	"github.com/waabox/deploydeck/internal/git"
	"github.com/waabox/deploydeck/internal/store"
)

const (
	requestTimeout = 15 * time.Second
	typingTimeout  = time.Second
)

// StepsLoadedMsg is sent when the step list has been fetched from the server.
// It is exported so that tests can inject it directly into AppModel.Update.
type StepsLoadedMsg struct {
	Steps []domain.PipelineStep
	Err   error
}

// EventMsg carries one event received on the primary channel.
type EventMsg struct {
	Event event.Event
}

// ConnectionMsg reports a connected/disconnected transition of the channel.
type ConnectionMsg struct {
	Connected bool
}

// PipelineStartedMsg is sent when the start request has completed.
type PipelineStartedMsg struct {
	Repo domain.Repository
	Err  error
}

// ChatSentMsg is sent when a chat message has been delivered, or has failed.
type ChatSentMsg struct {
	Result chat.Result
	Err    error
}

// OutputActionMsg is sent when the selected step output was copied or saved.
type OutputActionMsg struct {
	Notice string
	Err    error
}

// typingDoneMsg clears the typing indicator if no newer message was sent.
type typingDoneMsg struct {
	seq int
}

// focusArea is the widget receiving key input.
type focusArea int

const (
	focusPipeline focusArea = iota
	focusRepo
	focusChat
	focusCount
)

// AppModel is the root Bubbletea model for deploydeck.
type AppModel struct {
	api    domain.PipelineAPI
	sender *chat.Sender
	state  store.Dashboard
	// Widgets
	repoInput textinput.Model
	chatInput textinput.Model
	output    viewport.Model
	logs      viewport.Model
	chatView  viewport.Model
	spinner   spinner.Model
	styles    styles
	// General state
	focus     focusArea
	typing    bool
	typingSeq int
	err       error
	notice    string
	width     int
	height    int
	// OnPipelineStarted is called after the server accepted a run, from the
	// command goroutine.
	OnPipelineStarted func(domain.Repository)
	// CopyToClipboard receives the selected step output on "y".
	CopyToClipboard func(string) error
	// OutputDir is where "o" saves the selected step output.
	OutputDir string
}

// NewAppModel creates the root application model. repoURL pre-fills the
// repository input.
func NewAppModel(api domain.PipelineAPI, sender *chat.Sender, repoURL string) AppModel {
	repo := textinput.New()
	repo.Prompt = "Repository: "
	repo.Placeholder = "https://github.com/owner/repo"
	repo.CharLimit = 256
	repo.SetValue(repoURL)

	msg := textinput.New()
	msg.Prompt = "> "
	msg.Placeholder = "Ask about the deployment..."
	msg.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	state := store.NewDashboard()
	state.Chat = store.NewChat(chat.OpeningMessages(time.Now())...)

	m := AppModel{
		api:       api,
		sender:    sender,
		state:     state,
		repoInput: repo,
		chatInput: msg,
		output:    viewport.New(80, 8),
		logs:      viewport.New(80, 8),
		chatView:  viewport.New(80, 6),
		spinner:   sp,
		styles:    newStyles(),

		CopyToClipboard: clipboard.WriteAll,
		OutputDir:       ".",
	}
	return m.refresh()
}

// Init triggers the initial step load.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadSteps(), m.spinner.Tick)
}

// Dashboard returns the state currently rendered.
func (m AppModel) Dashboard() store.Dashboard {
	return m.state
}

// Repo returns the repository parsed from the input; empty fields when the
// input is not a GitHub URL.
func (m AppModel) Repo() domain.Repository {
	return git.ParseRemoteURL(m.repoInput.Value())
}

// CanStart reports whether a pipeline run may be requested now.
func (m AppModel) CanStart() bool {
	return m.Repo().Valid() && !m.state.Steps.Running() && m.state.Connected
}

// Typing reports whether the ai typing indicator is shown.
func (m AppModel) Typing() bool {
	return m.typing
}

func (m AppModel) loadSteps() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		steps, err := api.FetchSteps(ctx)
		return StepsLoadedMsg{Steps: steps, Err: err}
	}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.resize()

	case StepsLoadedMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("loading steps: %w", msg.Err)
			return m, nil
		}
		m.state.Steps = m.state.Steps.Replace(msg.Steps)

	case EventMsg:
		m.state = m.state.Apply(msg.Event)
		if ev, ok := msg.Event.(event.ChatMessage); ok && ev.Message.Type == domain.RoleAI {
			m.typing = false
		}

	case ConnectionMsg:
		m.state.Connected = msg.Connected

	case PipelineStartedMsg:
		if msg.Err != nil {
			m.state.Steps = m.state.Steps.AbortRun()
			m.err = fmt.Errorf("starting pipeline for %s/%s: %w", msg.Repo.Owner, msg.Repo.Name, msg.Err)
			return m.refresh(), nil
		}
		return m.refresh(), m.loadSteps()

	case ChatSentMsg:
		if msg.Err != nil {
			m.typing = false
			m.err = msg.Err
			if chat.IsDisconnected(msg.Err) {
				m.err = errors.New("chat unavailable: not connected to the pipeline server")
			}
			break
		}
		if msg.Result.Reply != nil {
			m.state.Chat = m.state.Chat.Append(*msg.Result.Reply)
			m.typing = false
			break
		}
		seq := m.typingSeq
		return m.refresh(), tea.Tick(typingTimeout, func(time.Time) tea.Msg {
			return typingDoneMsg{seq: seq}
		})

	case OutputActionMsg:
		m.err = msg.Err
		m.notice = msg.Notice

	case typingDoneMsg:
		if msg.seq == m.typingSeq {
			m.typing = false
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m.refresh(), cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m.refresh(), nil
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "alt+a":
		return m.quickReply(chat.QuickReplies[0])
	case "alt+r":
		return m.quickReply(chat.QuickReplies[1])
	case "alt+s":
		return m.quickReply(chat.QuickReplies[2])
	case "tab":
		return m.setFocus((m.focus + 1) % focusCount)
	case "ctrl+s":
		return m.startPipeline()
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusRepo:
		if msg.String() == "esc" || msg.String() == "enter" {
			return m.setFocus(focusPipeline)
		}
		m.repoInput, cmd = m.repoInput.Update(msg)
		return m, cmd
	case focusChat:
		switch msg.String() {
		case "esc":
			return m.setFocus(focusPipeline)
		case "enter":
			return m.sendChat()
		}
		m.chatInput, cmd = m.chatInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "right", "l", "down", "j":
		m.state.Steps = m.state.Steps.MoveNext()
		m.output.GotoTop()
	case "left", "h", "up", "k":
		m.state.Steps = m.state.Steps.MovePrev()
		m.output.GotoTop()
	case "s":
		return m.startPipeline()
	case "c":
		m.state.Logs = m.state.Logs.Clear()
	case "y":
		return m, m.copyOutput()
	case "o":
		return m, m.saveOutput()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if i := int(msg.Runes[0] - '1'); i < m.state.Steps.Len() {
			m.state.Steps = m.state.Steps.Select(m.state.Steps.List()[i].ID)
			m.output.GotoTop()
		}
	case "pgup", "pgdown":
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m.refresh(), nil
}

func (m AppModel) setFocus(f focusArea) (tea.Model, tea.Cmd) {
	m.focus = f
	m.repoInput.Blur()
	m.chatInput.Blur()
	switch f {
	case focusRepo:
		return m, m.repoInput.Focus()
	case focusChat:
		return m, m.chatInput.Focus()
	}
	return m, nil
}

// quickReply fills the chat input with a canned answer without sending it.
func (m AppModel) quickReply(text string) (tea.Model, tea.Cmd) {
	m.chatInput.SetValue(text)
	m.chatInput.CursorEnd()
	return m.setFocus(focusChat)
}

func (m AppModel) copyOutput() tea.Cmd {
	step, ok := m.state.Steps.Selected()
	if !ok || step.Output == "" {
		return func() tea.Msg { return OutputActionMsg{Notice: "nothing to copy"} }
	}
	write := m.CopyToClipboard
	return func() tea.Msg {
		if err := write(step.Output); err != nil {
			return OutputActionMsg{Err: fmt.Errorf("copying output: %w", err)}
		}
		return OutputActionMsg{Notice: fmt.Sprintf("copied %s output to clipboard", step.Name)}
	}
}

// saveOutput writes the selected step output to <step id>-output.txt.
func (m AppModel) saveOutput() tea.Cmd {
	step, ok := m.state.Steps.Selected()
	if !ok || step.Output == "" {
		return func() tea.Msg { return OutputActionMsg{Notice: "nothing to save"} }
	}
	path := filepath.Join(m.OutputDir, step.ID+"-output.txt")
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(step.Output), 0o644); err != nil {
			return OutputActionMsg{Err: fmt.Errorf("saving output: %w", err)}
		}
		return OutputActionMsg{Notice: "saved " + path}
	}
}

// startPipeline optimistically marks the run as started and clears the logs;
// a failed request rolls the running flag back.
func (m AppModel) startPipeline() (tea.Model, tea.Cmd) {
	if !m.CanStart() {
		return m, nil
	}
	repo := m.Repo()
	m.state.Steps = m.state.Steps.BeginRun()
	m.state.Logs = m.state.Logs.Clear()
	m.err = nil
	api, onStarted := m.api, m.OnPipelineStarted
	return m.refresh(), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := api.StartPipeline(ctx, repo)
		if err == nil && onStarted != nil {
			onStarted(repo)
		}
		return PipelineStartedMsg{Repo: repo, Err: err}
	}
}

func (m AppModel) sendChat() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.chatInput.Value())
	if text == "" || m.sender == nil {
		return m, nil
	}
	m.chatInput.Reset()
	m.notice = ""
	m.state.Chat = m.state.Chat.Append(chat.NewUserMessage(text, time.Now()))
	m.typing = true
	m.typingSeq++
	m.err = nil
	sender := m.sender
	return m.refresh(), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := sender.Send(ctx, text)
		return ChatSentMsg{Result: res, Err: err}
	}
}

// resize splits the free height between the output, log and chat panes.
func (m AppModel) resize() AppModel {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	free := m.height - 16
	if free < 9 {
		free = 9
	}
	m.output.Width, m.logs.Width, m.chatView.Width = w, w, w
	m.output.Height = free * 2 / 5
	m.logs.Height = free * 3 / 10
	m.chatView.Height = free - m.output.Height - m.logs.Height
	return m.refresh()
}

// refresh re-renders pane contents from state. Log and chat panes stay
// pinned to the bottom unless the user scrolled up.
func (m AppModel) refresh() AppModel {
	m.output.SetContent(NewStepListModel(m.state.Steps).OutputView(m.spinner.View()))

	pinned := m.logs.AtBottom()
	m.logs.SetContent(renderLogs(m.state.Logs.Entries(), m.styles))
	if pinned {
		m.logs.GotoBottom()
	}

	m.chatView.SetContent(renderChat(m.state.Chat.Messages(), m.typing, m.styles))
	m.chatView.GotoBottom()
	return m
}

// View renders the full TUI.
func (m AppModel) View() string {
	rule := m.width
	if rule <= 0 {
		rule = 60
	}
	separator := m.styles.muted.Render(strings.Repeat("─", rule)) + "\n"

	var sb strings.Builder
	sb.WriteString(" " + m.styles.title.Render("deploydeck") + "  " + m.badge() + "\n")
	sb.WriteString(separator)

	sb.WriteString(" " + m.repoInput.View() + "\n")
	repo := m.Repo()
	if repo.Valid() {
		sb.WriteString(fmt.Sprintf(" Owner: %s   Repo: %s\n", repo.Owner, repo.Name))
	} else {
		sb.WriteString(m.styles.muted.Render(" Enter a GitHub repository URL") + "\n")
	}
	sb.WriteString(separator)

	title := " Pipeline"
	if m.state.Steps.Running() {
		title += " " + m.spinner.View() + " running"
	}
	sb.WriteString(m.styles.section.Render(title) + "\n")
	sb.WriteString(" " + NewStepListModel(m.state.Steps).View() + "\n")
	sb.WriteString(separator)
	sb.WriteString(m.output.View() + "\n")
	sb.WriteString(separator)

	sb.WriteString(m.styles.section.Render(fmt.Sprintf(" Logs (%d)", m.state.Logs.Len())) + "\n")
	sb.WriteString(m.logs.View() + "\n")
	sb.WriteString(separator)

	sb.WriteString(m.styles.section.Render(" Chat") + "\n")
	sb.WriteString(m.chatView.View() + "\n")
	sb.WriteString(" " + m.chatInput.View() + "\n")
	sb.WriteString(separator)
	sb.WriteString(m.footer() + "\n")
	return sb.String()
}

func (m AppModel) badge() string {
	if m.state.Connected {
		return m.styles.badgeOn.Render("● connected")
	}
	return m.styles.badgeOff.Render("○ connecting...")
}

func (m AppModel) footer() string {
	if m.err != nil {
		return m.styles.errorLine.Render(" Error: " + m.err.Error())
	}
	if m.notice != "" {
		return m.styles.muted.Render(" " + m.notice)
	}
	switch m.focus {
	case focusRepo:
		return " enter/esc: done   tab: next   ctrl+s: start pipeline"
	case focusChat:
		return " enter: send   alt+a/r/s: accept/reject/status   esc: back   tab: next"
	}
	return " ←/→/1-9: step   s: start   y: copy   o: save   c: clear logs   PgUp/PgDn: logs   tab: next   q: quit"
}

// Options configures Run.
type Options struct {
	API       domain.PipelineAPI
	SocketURL string
	// ChannelOptions are passed to the connection manager; event and state
	// callbacks are added by Run.
	ChannelOptions    []channel.Option
	RepoURL           string
	OnPipelineStarted func(domain.Repository)
}

// Run starts the connection manager and the Bubbletea program, and blocks
// until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	channelOpts := append([]channel.Option{}, opts.ChannelOptions...)
	channelOpts = append(channelOpts,
		channel.OnEvent(func(ev event.Event) { p.Send(EventMsg{Event: ev}) }),
		channel.OnState(func(connected bool) { p.Send(ConnectionMsg{Connected: connected}) }),
	)
	mgr := channel.NewManager(opts.SocketURL, channelOpts...)

	model := NewAppModel(opts.API, chat.NewSender(mgr, opts.API), opts.RepoURL)
	model.OnPipelineStarted = opts.OnPipelineStarted
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go mgr.Run(ctx)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
