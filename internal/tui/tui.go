// Package tui provides the Bubble Tea annotation editor: an image list, a
// cell-grid canvas with mouse gestures and the box list of the open image.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/annotate/internal/boxlist"
	"github.com/fakeyudi/annotate/internal/canvas"
	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/selection"
	"github.com/fakeyudi/annotate/internal/session"
	"github.com/fakeyudi/annotate/internal/watch"
	"github.com/fakeyudi/annotate/internal/workspace"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	dirtyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Background(lipgloss.Color("62"))

	modeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("39")).
			Padding(0, 1)

	panelHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// ── Layout ────────────

const (
	imagePanelWidth = 32
	boxPanelWidth   = 16
	titleRows       = 1
	statusRows      = 1
	panelHeaderRows = 1
)

// recordChangedMsg carries the path of a record changed on disk.
type recordChangedMsg string

func waitForChange(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return recordChangedMsg(path)
	}
}

// sceneView forwards selections pushed by the synchronizer to whichever scene
// is current, so one synchronizer serves every image.
type sceneView struct{ m *Model }

func (v sceneView) SetSelected(id int, ok bool) {
	if v.m.scene != nil {
		v.m.scene.SetSelected(id, ok)
	}
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger for editor diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStartImage opens entry i first instead of the first image.
func WithStartImage(i int) Option {
	return func(m *Model) { m.start = i }
}

// ── Model ────────────────────

// Model is the root Bubble Tea model of the editor.
type Model struct {
	editor      *workspace.Editor
	start       int
	scene       *canvas.Scene
	boxes       *boxlist.Model
	sync        *selection.Synchronizer
	unsubscribe func()
	corner      geometry.Corner // corner moved by the nudge keys

	search    textinput.Model
	searching bool
	matches   []int // entry indexes shown in the image panel
	pick      int   // highlighted match while searching

	keys keyMap
	help help.Model

	notices   []workspace.Notice
	status    string
	statusErr bool

	width, height int
	ready         bool
	grid          grid

	ctx       context.Context
	stop      context.CancelFunc
	stopWatch context.CancelFunc
	changes   chan string
	logger    *slog.Logger
}

// New creates the editor model and opens the start image.
func New(editor *workspace.Editor, opts ...Option) *Model {
	ctx, stop := context.WithCancel(context.Background())

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "filter images"
	search.Width = imagePanelWidth - 4

	m := &Model{
		editor:  editor,
		boxes:   boxlist.New(),
		search:  search,
		keys:    defaultKeyMap(),
		help:    help.New(),
		ctx:     ctx,
		stop:    stop,
		changes: make(chan string, 1),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sync = selection.New(m.boxes, sceneView{m}, func(int) bool { return false })
	m.boxes.OnSelect(m.sync.FromList)
	m.matches = workspace.Filter(editor.Entries(), "")

	m.switchTo(func() (*session.LoadReport, error) { return editor.Open(m.start) })
	return m
}

// ── Bubble Tea interface ───────────────

func (m *Model) Init() tea.Cmd { return waitForChange(m.changes) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case recordChangedMsg:
		m.recordChanged(string(msg))
		return m, waitForChange(m.changes)

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m, m.searchKey(msg)
		}
		return m, m.key(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	if !m.ready {
		return "Loading…"
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.imagePanel(), m.canvasView(), m.boxPanel())
	return lipgloss.JoinVertical(lipgloss.Left, m.titleBar(), body, m.statusBar(), m.help.View(m.keys))
}

// ── Input ──────────────────

func (m *Model) key(msg tea.KeyMsg) tea.Cmd {
	sess := m.editor.Session()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.pick = 0
		return m.search.Focus()
	case key.Matches(msg, m.keys.NextImage):
		m.switchTo(m.editor.Next)
	case key.Matches(msg, m.keys.PrevImage):
		m.switchTo(m.editor.Prev)
	case sess == nil:
		// Nothing below applies without an open image.
	case key.Matches(msg, m.keys.Save):
		if !sess.Dirty {
			m.setStatus("no unsaved changes")
		} else if err := m.editor.Save(); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.Up):
		m.boxes.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.boxes.Move(1)
	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.sync.Selected(); ok {
			sess.DeleteID(id)
		}
	case key.Matches(msg, m.keys.AddMode):
		if m.scene.Mode() == canvas.ModeAdd {
			m.scene.SetMode(canvas.ModeSelect)
		} else {
			m.scene.SetMode(canvas.ModeAdd)
		}
	case key.Matches(msg, m.keys.Corner):
		if m.corner == geometry.TopLeft {
			m.corner = geometry.BottomRight
		} else {
			m.corner = geometry.TopLeft
		}
	case key.Matches(msg, m.keys.NudgeLeft):
		m.nudge(-m.grid.sx(), 0)
	case key.Matches(msg, m.keys.NudgeRight):
		m.nudge(m.grid.sx(), 0)
	case key.Matches(msg, m.keys.NudgeUp):
		m.nudge(0, -m.grid.sy())
	case key.Matches(msg, m.keys.NudgeDown):
		m.nudge(0, m.grid.sy())
	case key.Matches(msg, m.keys.Cancel):
		m.cancel()
	}
	return nil
}

func (m *Model) searchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEsc:
		m.search.SetValue("")
		m.search.Blur()
		m.searching = false
		m.matches = workspace.Filter(m.editor.Entries(), "")
		return nil
	case tea.KeyEnter:
		m.search.Blur()
		m.searching = false
		if m.pick < len(m.matches) {
			i := m.matches[m.pick]
			m.switchTo(func() (*session.LoadReport, error) { return m.editor.Open(i) })
		}
		return nil
	case tea.KeyUp:
		m.pick = max(m.pick-1, 0)
		return nil
	case tea.KeyDown:
		m.pick = max(min(m.pick+1, len(m.matches)-1), 0)
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.matches = workspace.Filter(m.editor.Entries(), m.search.Value())
	m.pick = 0
	return cmd
}

func (m *Model) mouse(msg tea.MouseMsg) {
	gesture := m.scene != nil && m.gestureActive()
	switch {
	case gesture || (m.scene != nil && m.grid.contains(msg.X, msg.Y)):
		m.canvasMouse(msg)
	case msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft:
	case msg.Y < titleRows+panelHeaderRows || msg.Y >= m.grid.y+m.grid.rows:
	case msg.X < imagePanelWidth:
		row := msg.Y - titleRows - panelHeaderRows
		if i := windowStart(len(m.matches), m.imageCursor(), m.panelRows()) + row; i < len(m.matches) {
			entry := m.matches[i]
			m.switchTo(func() (*session.LoadReport, error) { return m.editor.Open(entry) })
		}
	case msg.X >= m.grid.x+m.grid.cols:
		row := msg.Y - titleRows - panelHeaderRows
		m.boxes.Click(windowStart(len(m.boxes.Rows()), m.boxes.Cursor(), m.panelRows()) + row)
	}
}

func (m *Model) canvasMouse(msg tea.MouseMsg) {
	p := m.grid.toImage(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.scene.Press(p)
		}
	case tea.MouseActionMotion:
		m.scene.Motion(p)
	case tea.MouseActionRelease:
		if err := m.scene.Release(p); err != nil {
			m.setError(err)
		}
	}
}

func (m *Model) gestureActive() bool {
	_, creating := m.scene.Preview()
	return creating || m.scene.Dragging()
}

func (m *Model) nudge(dx, dy float64) {
	if err := m.scene.Nudge(m.corner, dx, dy); err != nil {
		m.setError(err)
	}
}

func (m *Model) cancel() {
	switch {
	case m.gestureActive():
		m.scene.CancelGesture()
	case m.scene.Mode() == canvas.ModeAdd:
		m.scene.SetMode(canvas.ModeSelect)
	default:
		m.boxes.Click(-1)
	}
}

// ── Session lifecycle ───────────────

// switchTo runs an editor navigation and, when it opened another session,
// rebinds the views to it. On failure the current session stays active.
func (m *Model) switchTo(open func() (*session.LoadReport, error)) {
	report, err := open()
	if err != nil {
		m.setError(err)
		return
	}
	if report == nil {
		return
	}
	m.bind()
	m.notices = workspace.Notices(report)
	m.status, m.statusErr = "", false
	m.watchRecord()
}

// bind attaches the canvas, the box list and the synchronizer to the
// editor's active session.
func (m *Model) bind() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.scene != nil {
		m.scene.Close()
	}
	sess := m.editor.Session()
	m.scene = canvas.New(sess)
	m.scene.OnSelect(m.sync.FromCanvas)
	m.unsubscribe = sess.Subscribe(m.sessionChanged)
	m.boxes.SetDetections(sess.Detections())
	m.sync.Rebind(sess.Has)
	m.layout()
}

func (m *Model) sessionChanged(e session.Event) {
	sess := m.editor.Session()
	m.boxes.SetDetections(sess.Detections())
	m.sync.Reconcile()
	if e.Kind == session.Saved {
		m.setStatus("saved " + sess.Source.RelativePath)
	}
}

func (m *Model) watchRecord() {
	if m.stopWatch != nil {
		m.stopWatch()
	}
	entry, ok := m.editor.Current()
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.stopWatch = cancel
	path, logger := entry.RecordPath, m.logger
	go func() {
		if err := watch.Watch(ctx, path, m.changes); err != nil {
			logger.Warn("cannot watch record", "path", path, "error", err)
		}
	}()
}

func (m *Model) recordChanged(path string) {
	entry, ok := m.editor.Current()
	if !ok || filepath.Clean(entry.RecordPath) != path {
		return
	}
	changed, err := m.editor.ChangedOnDisk()
	switch {
	case err != nil:
		m.setError(err)
	case !changed:
	case m.editor.Session().Dirty:
		m.notices = []workspace.Notice{{
			Level: workspace.Warning,
			Text:  "record changed on disk; saving will overwrite it",
		}}
	default:
		report, err := m.editor.Reload()
		if err != nil {
			m.setError(err)
			return
		}
		m.bind()
		m.notices = workspace.Notices(report)
		m.setStatus("reloaded record changed on disk")
	}
}

// quit saves the active session. A failed save keeps the editor open.
func (m *Model) quit() tea.Cmd {
	if err := m.editor.Close(); err != nil {
		m.setError(fmt.Errorf("not quitting: %w", err))
		return nil
	}
	m.shutdown()
	return tea.Quit
}

func (m *Model) shutdown() {
	m.stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.scene != nil {
		m.scene.Close()
	}
}

func (m *Model) setStatus(text string) {
	m.status, m.statusErr = text, false
}

func (m *Model) setError(err error) {
	m.status, m.statusErr = err.Error(), true
	m.logger.Error("editor action failed", "error", err)
}

// ── Rendering ─────────────────

func (m *Model) layout() {
	m.help.Width = m.width
	helpRows := lipgloss.Height(m.help.View(m.keys))
	m.grid = grid{
		x:    imagePanelWidth,
		y:    titleRows,
		cols: max(m.width-imagePanelWidth-boxPanelWidth, 2),
		rows: max(m.height-titleRows-statusRows-helpRows, 2),
	}
	if sess := m.editor.Session(); sess != nil {
		m.grid.width, m.grid.height = sess.Width, sess.Height
	}
	if m.scene != nil {
		m.scene.HandleTolerance = max(canvas.DefaultHandleTolerance, m.grid.sx(), m.grid.sy())
	}
}

func (m *Model) panelRows() int { return max(m.grid.rows-panelHeaderRows, 1) }

// imageCursor is the highlighted position within the image panel.
func (m *Model) imageCursor() int {
	if m.searching {
		return m.pick
	}
	for pos, i := range m.matches {
		if i == m.editor.Index() {
			return pos
		}
	}
	return 0
}

// windowStart returns the first visible row of a list of n rows scrolled so
// the cursor stays near the middle.
func windowStart(n, cursor, visible int) int {
	if n <= visible {
		return 0
	}
	return min(max(cursor-visible/2, 0), n-visible)
}

func (m *Model) titleBar() string {
	text := "annotate"
	if entry, ok := m.editor.Current(); ok {
		text += fmt.Sprintf("  %s  (%d/%d)", entry.RelativePath, m.editor.Index()+1, len(m.editor.Entries()))
	}
	parts := []string{titleStyle.Render(text)}
	if sess := m.editor.Session(); sess != nil && sess.Dirty {
		parts = append(parts, dirtyStyle.Render("● modified "))
	}
	if m.scene != nil && m.scene.Mode() == canvas.ModeAdd {
		parts = append(parts, modeStyle.Render("ADD"))
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color("62")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (m *Model) imagePanel() string {
	var header string
	if m.searching || m.search.Value() != "" {
		header = m.search.View()
	} else {
		header = panelHeader.Render(fmt.Sprintf("Images (%d)", len(m.matches)))
	}
	lines := []string{header}

	entries := m.editor.Entries()
	cursor := m.imageCursor()
	start := windowStart(len(m.matches), cursor, m.panelRows())
	for pos := start; pos < len(m.matches) && pos-start < m.panelRows(); pos++ {
		i := m.matches[pos]
		line := " " + entries[i].RelativePath
		switch {
		case m.searching && pos == m.pick:
			line = selectedRowStyle.Render(line)
		case !m.searching && i == m.editor.Index():
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(m.matches) == 0 {
		lines = append(lines, dimStyle.Render(" (no matches)"))
	}
	return panel(imagePanelWidth, m.grid.rows, lines)
}

func (m *Model) boxPanel() string {
	rows := m.boxes.Rows()
	lines := []string{panelHeader.Render(fmt.Sprintf(" Boxes (%d)", len(rows)))}
	start := windowStart(len(rows), m.boxes.Cursor(), m.panelRows())
	for i := start; i < len(rows) && i-start < m.panelRows(); i++ {
		line := " " + rows[i].Label()
		if i == m.boxes.Cursor() {
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return panel(boxPanelWidth, m.grid.rows, lines)
}

func (m *Model) canvasView() string {
	if m.scene == nil {
		return panel(m.grid.cols, m.grid.rows, []string{dimStyle.Render(" no image open")})
	}
	return drawScene(m.grid, m.scene, m.corner).String()
}

func panel(width, height int, lines []string) string {
	return lipgloss.NewStyle().
		Width(width).MaxWidth(width).
		Height(height).MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) statusBar() string {
	var text string
	switch {
	case m.status != "" && m.statusErr:
		text = errorStyle.Render(m.status)
	case m.status != "":
		text = m.status
	case len(m.notices) > 0:
		parts := make([]string, len(m.notices))
		for i, n := range m.notices {
			parts[i] = n.Text
			if n.Level == workspace.Warning {
				parts[i] = warningStyle.Render(n.Text)
			}
		}
		text = strings.Join(parts, "  ·  ")
	}

	var info string
	if sess := m.editor.Session(); sess != nil {
		info = fmt.Sprintf("%d×%d  %d boxes", sess.Width, sess.Height, len(sess.Record.Detections))
		if id, ok := m.sync.Selected(); ok {
			if det, found := sess.Lookup(id); found {
				info = fmt.Sprintf("#%d %s  %s: %s", id, det.BBox, m.corner, info)
			}
		}
	}
	pad := max(m.width-lipgloss.Width(text)-lipgloss.Width(info)-2, 1)
	return statusBarStyle.Width(m.width).MaxWidth(m.width).Render(text + strings.Repeat(" ", pad) + info)
}

// Run starts the editor and blocks until it exits.
func Run(editor *workspace.Editor, opts ...Option) error {
	m := New(editor, opts...)
	defer m.shutdown()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
