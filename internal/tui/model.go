// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/keyboarding/internal/achievement"
	"github.com/verte-zerg/keyboarding/internal/gate"
	"github.com/verte-zerg/keyboarding/internal/lesson"
	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/texts"
	"github.com/verte-zerg/keyboarding/internal/typing"
)

type screen int

const (
	screenSelect screen = iota
	screenGate
	screenTyping
	screenResult
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	correctedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A33D"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	passStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A33D"))
	boxStyle         = lipgloss.NewStyle().
				Padding(1, 2).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
)

type (
	loadedMsg       struct{ err error }
	watchStartedMsg struct {
		updates <-chan struct{}
		err     error
	}
	changedMsg     struct{}
	watchClosedMsg struct{}
	metricsTickMsg struct{ token typing.Token }
	clockTickMsg   struct{ token typing.Token }
	recordedMsg    struct{ outcome lesson.RecordOutcome }
	unlockedMsg    struct {
		records []model.AchievementRecord
		err     error
	}
)

// Options configures the typing UI.
type Options struct {
	Service         *lesson.Service
	Texts           texts.Provider
	Picker          *texts.Picker
	MetricsInterval time.Duration
	ClockInterval   time.Duration
	Logger          *zap.Logger
	// StartAssessment opens the final assessment directly instead of the
	// category list.
	StartAssessment bool
	Now             func() time.Time
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	svc          *lesson.Service
	texts        texts.Provider
	picker       *texts.Picker
	metricsEvery time.Duration
	clockEvery   time.Duration
	logger       *zap.Logger
	now          func() time.Time

	width  int
	height int

	screen     screen
	table      table.Model
	gate       gate.Gate
	loadErr    error
	wantAssess bool
	updates    <-chan struct{}

	kind       model.Kind
	categoryID string
	text       string
	session    *typing.Session
	missed     bool
	live       typing.Metrics
	elapsed    time.Duration

	result  *model.SessionResult
	outcome *lesson.RecordOutcome
	saving  bool
	notice  string
	recent  []string
}

// NewModel constructs a typing TUI model.
func NewModel(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	picker := opts.Picker
	if picker == nil {
		picker = texts.NewPicker()
	}
	m := &Model{
		ctx:          ctx,
		cancel:       cancel,
		svc:          opts.Service,
		texts:        opts.Texts,
		picker:       picker,
		metricsEvery: opts.MetricsInterval,
		clockEvery:   opts.ClockInterval,
		logger:       logger,
		now:          now,
		wantAssess:   opts.StartAssessment,
		table:        newCategoryTable(),
	}
	if m.wantAssess {
		m.screen = screenGate
	}
	m.refreshTable()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.watchCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(min(msg.Width, tableWidth))
		return m, nil
	case loadedMsg:
		m.loadErr = msg.err
		m.gate.Load(m.svc.Ack(), msg.err)
		m.refreshTable()
		if m.wantAssess && m.gate.State() != gate.Checking {
			m.wantAssess = false
			return m, m.openAssessment()
		}
		return m, nil
	case watchStartedMsg:
		if msg.err != nil {
			m.logger.Warn("watch progress failed", zap.Error(msg.err))
			return m, nil
		}
		m.updates = msg.updates
		return m, waitForChange(m.updates)
	case changedMsg:
		m.gate.Refresh(m.svc.Ack())
		m.refreshTable()
		return m, waitForChange(m.updates)
	case watchClosedMsg:
		m.updates = nil
		return m, nil
	case metricsTickMsg:
		return m, m.onMetricsTick(msg)
	case clockTickMsg:
		return m, m.onClockTick(msg)
	case recordedMsg:
		return m, m.onRecorded(msg.outcome)
	case unlockedMsg:
		m.onUnlocked(msg.records, msg.err)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}
		switch m.screen {
		case screenTyping:
			return m, m.updateTyping(msg)
		case screenResult:
			return m.updateResult(msg)
		case screenGate:
			return m.updateGate(msg)
		default:
			return m.updateSelect(msg)
		}
	}
	return m, nil
}

func (m *Model) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit
	case "enter":
		cats := m.svc.Categories()
		idx := m.table.Cursor()
		if idx >= 0 && idx < len(cats) {
			return m, m.startSession(model.KindPractice, cats[idx].ID, "")
		}
		return m, m.openAssessment()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateGate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "esc":
		m.screen = screenSelect
		return m, nil
	case "enter":
		if m.gate.State() == gate.Checking {
			return m, m.loadCmd()
		}
		return m, m.openAssessment()
	}
	return m, nil
}

func (m *Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "esc":
		m.screen = screenSelect
		m.refreshTable()
		return m, nil
	case "r":
		return m, m.startSession(m.kind, m.categoryID, m.text)
	case "n":
		return m, m.startSession(m.kind, m.categoryID, "")
	}
	return m, nil
}

// openAssessment shows the final assessment or the gate screen explaining
// why it cannot start yet.
func (m *Model) openAssessment() tea.Cmd {
	if m.gate.State() != gate.Unlocked {
		m.screen = screenGate
		return nil
	}
	return m.startSession(model.KindAssessment, m.svc.Assessment().ID, "")
}

// startSession begins a session. An empty text picks a new one from the
// pool, avoiding the previous text.
func (m *Model) startSession(kind model.Kind, categoryID, text string) tea.Cmd {
	criteria := m.svc.Assessment().Criteria
	if kind == model.KindPractice {
		cat, ok := m.svc.Category(categoryID)
		if !ok {
			m.notice = "unknown category " + categoryID
			return nil
		}
		criteria = cat.Criteria
	}
	if text == "" {
		next, err := texts.Next(m.texts, m.picker, categoryID, m.text)
		if err != nil {
			m.notice = err.Error()
			return nil
		}
		text = next
	}
	session, err := typing.New(text, criteria)
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	m.abandon()
	m.kind = kind
	m.categoryID = categoryID
	m.text = text
	m.session = session
	m.missed = false
	m.live = typing.Idle
	m.elapsed = 0
	m.result = nil
	m.outcome = nil
	m.saving = false
	m.notice = ""
	m.screen = screenTyping
	return nil
}

// abandon drops the current session without producing a result.
func (m *Model) abandon() {
	if m.session != nil && m.session.Status() != typing.Completed {
		m.session.Abandon()
	}
}

func (m *Model) updateTyping(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.abandon()
		m.session = nil
		m.screen = screenSelect
		return nil
	case tea.KeySpace:
		return m.typeKey(" ")
	case tea.KeyRunes:
		var cmds []tea.Cmd
		for _, r := range msg.Runes {
			cmds = append(cmds, m.typeKey(string(r)))
			if m.screen != screenTyping {
				break
			}
		}
		return tea.Batch(cmds...)
	}
	return nil
}

func (m *Model) typeKey(key string) tea.Cmd {
	if m.session == nil {
		return nil
	}
	now := m.now()
	step := m.session.Type(key, now)
	var cmds []tea.Cmd
	switch step.Outcome {
	case typing.Ignored:
		return nil
	case typing.Incorrect:
		m.missed = true
	case typing.Correct:
		m.missed = false
		if m.svc.Pending(achievement.Signal{Type: achievement.DimStreak, Value: step.Streak}) {
			streak := step.Streak
			cmds = append(cmds, m.signalCmd(func(ctx context.Context) ([]model.AchievementRecord, error) {
				return m.svc.Streak(ctx, streak)
			}))
		}
	}
	if step.Started {
		tok := m.session.Token()
		cmds = append(cmds,
			tick(m.metricsEvery, func() tea.Msg { return metricsTickMsg{token: tok} }),
			tick(m.clockEvery, func() tea.Msg { return clockTickMsg{token: tok} }),
			m.signalCmd(m.svc.FirstKey),
		)
	}
	if step.Completed {
		cmds = append(cmds, m.finish())
	}
	return tea.Batch(cmds...)
}

// finish shows the verdict at once and persists the result in the background.
func (m *Model) finish() tea.Cmd {
	res, ok := m.session.Result()
	if !ok {
		return nil
	}
	r := m.svc.NewResult(m.categoryID, m.kind, res)
	m.result = &r
	m.live = res.Metrics
	m.elapsed = time.Duration(res.DurationSeconds * float64(time.Second))
	m.saving = true
	m.screen = screenResult
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, lesson.PersistTimeout)
		defer cancel()
		return recordedMsg{outcome: svc.Record(ctx, r)}
	}
}

func (m *Model) onMetricsTick(msg metricsTickMsg) tea.Cmd {
	if m.session == nil || !m.session.Live(msg.token) {
		return nil
	}
	m.live = m.session.Metrics(m.now())
	cmds := []tea.Cmd{tick(m.metricsEvery, func() tea.Msg { return metricsTickMsg{token: msg.token} })}
	if m.svc.Pending(achievement.Signal{Type: achievement.DimWPM, Value: m.live.WPM}) {
		wpm := m.live.WPM
		cmds = append(cmds, m.signalCmd(func(ctx context.Context) ([]model.AchievementRecord, error) {
			return m.svc.Speed(ctx, wpm)
		}))
	}
	return tea.Batch(cmds...)
}

func (m *Model) onClockTick(msg clockTickMsg) tea.Cmd {
	if m.session == nil || !m.session.Live(msg.token) {
		return nil
	}
	m.elapsed = m.session.Elapsed(m.now())
	return tick(m.clockEvery, func() tea.Msg { return clockTickMsg{token: msg.token} })
}

func (m *Model) onRecorded(out lesson.RecordOutcome) tea.Cmd {
	if m.result == nil || m.result.ID != out.Result.ID {
		return nil
	}
	m.saving = false
	m.outcome = &out
	m.onUnlocked(out.Unlocked, nil)
	switch {
	case out.Err != nil:
		m.notice = "progress could not be saved, see the log for details"
	case errors.Is(out.SubmitErr, context.DeadlineExceeded):
		m.notice = "score submission timed out"
	case out.SubmitErr != nil:
		m.notice = "score submission failed: " + out.SubmitErr.Error()
	}
	if out.Ack != nil {
		m.gate.Load(out.Ack, nil)
	}
	m.refreshTable()
	return nil
}

func (m *Model) onUnlocked(records []model.AchievementRecord, err error) {
	if err != nil {
		m.logger.Warn("save achievements failed", zap.Error(err))
	}
	for _, rec := range records {
		title := rec.ID
		if def, ok := achievement.Lookup(rec.ID); ok {
			title = def.Title
		}
		m.recent = append(m.recent, title)
	}
	if n := len(m.recent); n > 3 {
		m.recent = m.recent[n-3:]
	}
}

func (m *Model) signalCmd(fn func(context.Context) ([]model.AchievementRecord, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, lesson.PersistTimeout)
		defer cancel()
		records, err := fn(ctx)
		return unlockedMsg{records: records, err: err}
	}
}

func (m *Model) loadCmd() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, lesson.PersistTimeout)
		defer cancel()
		return loadedMsg{err: svc.Load(ctx)}
	}
}

func (m *Model) watchCmd() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		updates, err := svc.Watch(ctx)
		return watchStartedMsg{updates: updates, err: err}
	}
}

func waitForChange(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return watchClosedMsg{}
		}
		return changedMsg{}
	}
}

func tick(d time.Duration, msg func() tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg() })
}
