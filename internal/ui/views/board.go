package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fpdash/fpboard/internal/aggregate"
	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/kanban"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/ui/keys"
	"github.com/fpdash/fpboard/internal/ui/styles"
)

// BoardMode picks between the kanban lanes and the grouped project list
type BoardMode int

const (
	ModeLanes BoardMode = iota
	ModeProjects
)

// Edit form fields
const (
	fieldPercent = iota
	fieldStart
	fieldEnd
	fieldSave
	fieldCount
)

var statusCycle = []models.TaskStatus{
	models.StatusNotStarted,
	models.StatusInProgress,
	models.StatusWorkComplete,
	models.StatusCancelled,
}

// BoardView is the My Tasks board
type BoardView struct {
	backend Backend
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	self    models.User // signed in
	viewer  models.User // whose tasks are shown
	gen     dashboard.Generation
	loading bool
	data    dashboard.Board
	board   *kanban.Board

	mode      BoardMode
	lane      int
	cursors   []int // per lane
	row       int   // project list cursor
	collapsed map[string]bool

	// Filters
	status      *models.TaskStatus
	projectIdx  int // 0 = all projects
	searchInput textinput.Model
	searching   bool

	toast   *kanban.Toast
	toastID int

	editing   bool
	editID    string
	inputs    []textinput.Model
	editFocus int
	editErr   string

	picking bool
	picker  *UserPicker

	showHelpPopup bool
}

// NewBoardView creates the board for the signed-in user
func NewBoardView(backend Backend, self models.User) *BoardView {
	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100

	inputs := make([]textinput.Model, fieldSave)
	for i, ph := range []string{"0-100", "YYYY-MM-DD", "YYYY-MM-DD"} {
		in := textinput.New()
		in.Placeholder = ph
		in.CharLimit = 10
		inputs[i] = in
	}

	return &BoardView{
		backend:     backend,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		self:        self,
		viewer:      self,
		cursors:     make([]int, len(kanban.Lanes)),
		collapsed:   make(map[string]bool),
		searchInput: search,
		inputs:      inputs,
		picker:      NewUserPicker(backend),
	}
}

type boardLoadedMsg struct {
	gen   uint64
	board dashboard.Board
}

type persistedMsg struct {
	board  *kanban.Board
	change kanban.Change
	err    error
}

type toastExpiredMsg struct {
	id int
}

// Init loads the signed-in user's tasks
func (v *BoardView) Init() tea.Cmd {
	return v.load()
}

// Capturing reports whether keys are going to a text field or popup
func (v *BoardView) Capturing() bool {
	return v.editing || v.searching || v.picking || v.showHelpPopup
}

// Viewer is the user whose tasks are shown
func (v *BoardView) Viewer() models.User {
	return v.viewer
}

func (v *BoardView) load() tea.Cmd {
	gen := v.gen.Next()
	v.loading = true
	backend, viewer := v.backend, v.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return boardLoadedMsg{gen: gen, board: backend.MyTasks(ctx, viewer)}
	}
}

// Update handles messages
func (v *BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.picker.SetSize(msg.Width, msg.Height)
		return v, nil

	case boardLoadedMsg:
		if !v.gen.Current(msg.gen) {
			return v, nil
		}
		v.loading = false
		v.data = msg.board
		// sample data is saved as the sample viewer, which is a fallback
		actor := v.self
		if msg.board.Origin == dashboard.Placeholder {
			actor = msg.board.Viewer
		}
		v.board = kanban.NewBoard(msg.board.Tasks, v.backend.Persister(actor))
		v.clampCursors()
		return v, nil

	case persistedMsg:
		toast := msg.board.Settle(msg.change, msg.err)
		if msg.board != v.board {
			return v, v.showToast(toast)
		}
		if v.mode == ModeLanes {
			v.follow(msg.change.TaskID)
		} else {
			v.clampCursors()
		}
		// a failed save goes back to the form with what was typed
		if msg.err != nil && msg.change.IsSave() && !v.editing && !v.picking {
			if t, ok := v.board.Task(msg.change.TaskID); ok {
				return v, tea.Batch(v.showToast(toast), v.openEdit(t))
			}
		}
		return v, v.showToast(toast)

	case toastExpiredMsg:
		if msg.id == v.toastID {
			v.toast = nil
		}
		return v, nil

	case usersFoundMsg:
		return v, v.picker.Update(msg)

	case UserSelected:
		v.picking = false
		v.viewer = msg.User
		v.resetFilters()
		return v, v.load()

	case pickerClosed:
		v.picking = false
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.picking {
			return v, v.picker.Update(msg)
		}
		if v.editing {
			return v.updateEditing(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *BoardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't process hotkeys while typing
	if v.searching {
		switch {
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
			v.searchInput.Blur()
			v.searching = false
			return v, nil
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.clampCursors()
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		return v, v.load()

	case key.Matches(msg, v.keys.Mode):
		if v.mode == ModeLanes {
			v.mode = ModeProjects
		} else {
			v.mode = ModeLanes
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		return v, v.searchInput.Focus()

	case key.Matches(msg, v.keys.Back):
		if v.searchInput.Value() != "" {
			v.searchInput.Reset()
			v.clampCursors()
		}
		return v, nil

	case key.Matches(msg, v.keys.Status):
		v.status = nextStatus(v.status)
		v.clampCursors()
		return v, nil

	case key.Matches(msg, v.keys.Project):
		v.projectIdx = (v.projectIdx + 1) % (len(v.data.Projects) + 1)
		v.clampCursors()
		return v, nil

	case key.Matches(msg, v.keys.Users):
		v.picking = true
		return v, v.picker.Open()

	case key.Matches(msg, v.keys.Me):
		if v.viewer.ID == v.self.ID {
			return v, nil
		}
		v.viewer = v.self
		v.resetFilters()
		return v, v.load()

	case key.Matches(msg, v.keys.Up):
		v.moveCursor(-1)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.moveCursor(1)
		return v, nil

	case key.Matches(msg, v.keys.Left):
		if v.mode == ModeLanes && v.lane > 0 {
			v.lane--
		}
		return v, nil

	case key.Matches(msg, v.keys.Right):
		if v.mode == ModeLanes && v.lane < len(kanban.Lanes)-1 {
			v.lane++
		}
		return v, nil

	case key.Matches(msg, v.keys.MoveLeft):
		return v, v.shift(-1)

	case key.Matches(msg, v.keys.MoveRight):
		return v, v.shift(1)

	case msg.String() == "1", msg.String() == "2", msg.String() == "3":
		return v, v.move(kanban.Lanes[int(msg.Runes[0]-'1')])

	case key.Matches(msg, v.keys.Toggle):
		v.toggleProject()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.mode == ModeProjects {
			rows := v.projectRows()
			if v.row < len(rows) && rows[v.row].task == nil {
				v.toggleProject()
				return v, nil
			}
		}
		return v, v.startEdit()

	case key.Matches(msg, v.keys.Edit):
		return v, v.startEdit()
	}

	return v, nil
}

func nextStatus(s *models.TaskStatus) *models.TaskStatus {
	if s == nil {
		next := statusCycle[0]
		return &next
	}
	for i, st := range statusCycle {
		if st == *s && i+1 < len(statusCycle) {
			next := statusCycle[i+1]
			return &next
		}
	}
	return nil
}

func (v *BoardView) resetFilters() {
	v.status = nil
	v.projectIdx = 0
	v.searchInput.Reset()
	v.row = 0
	for i := range v.cursors {
		v.cursors[i] = 0
	}
}

// projectFilter is the project picked with the project key, or "" for all
func (v *BoardView) projectFilter() (models.Project, bool) {
	if v.projectIdx <= 0 || v.projectIdx > len(v.data.Projects) {
		return models.Project{}, false
	}
	return v.data.Projects[v.projectIdx-1], true
}

func (v *BoardView) visible() []models.Task {
	if v.board == nil {
		return nil
	}
	f := aggregate.Filter{Status: v.status, Search: v.searchInput.Value()}
	if p, ok := v.projectFilter(); ok {
		f.ProjectID = p.ID
	}
	return f.Apply(v.board.Tasks())
}

type projectRow struct {
	project *models.Project
	task    *models.Task
}

// projectRows flattens the grouped list, skipping the tasks of collapsed
// projects
func (v *BoardView) projectRows() []projectRow {
	projects := aggregate.GroupByProject(v.visible(), aggregate.Options{ViewerID: v.data.Viewer.ID, Meta: v.data.Meta})
	var rows []projectRow
	for i := range projects {
		p := &projects[i]
		rows = append(rows, projectRow{project: p})
		if v.collapsed[p.ID] {
			continue
		}
		for j := range p.Tasks {
			rows = append(rows, projectRow{project: p, task: &p.Tasks[j]})
		}
	}
	return rows
}

func (v *BoardView) toggleProject() {
	if v.mode != ModeProjects {
		return
	}
	rows := v.projectRows()
	if v.row >= len(rows) {
		return
	}
	id := rows[v.row].project.ID
	v.collapsed[id] = !v.collapsed[id]
	// land on the project header
	for i, r := range v.projectRows() {
		if r.task == nil && r.project.ID == id {
			v.row = i
			break
		}
	}
}

func (v *BoardView) moveCursor(delta int) {
	if v.mode == ModeProjects {
		v.row = clamp(v.row+delta, 0, max(len(v.projectRows())-1, 0))
		return
	}
	col := kanban.Columns(v.visible())[kanban.Lanes[v.lane]]
	v.cursors[v.lane] = clamp(v.cursors[v.lane]+delta, 0, max(len(col)-1, 0))
}

func (v *BoardView) clampCursors() {
	cols := kanban.Columns(v.visible())
	for i, lane := range kanban.Lanes {
		v.cursors[i] = clamp(v.cursors[i], 0, max(len(cols[lane])-1, 0))
	}
	v.row = clamp(v.row, 0, max(len(v.projectRows())-1, 0))
}

// selected returns the task under the cursor
func (v *BoardView) selected() (models.Task, bool) {
	if v.mode == ModeProjects {
		rows := v.projectRows()
		if v.row < len(rows) && rows[v.row].task != nil {
			return *rows[v.row].task, true
		}
		return models.Task{}, false
	}
	col := kanban.Columns(v.visible())[kanban.Lanes[v.lane]]
	if c := v.cursors[v.lane]; c < len(col) {
		return col[c], true
	}
	return models.Task{}, false
}

// follow puts the lane cursor back on a task after it changed lanes
func (v *BoardView) follow(id string) {
	cols := kanban.Columns(v.visible())
	for i, lane := range kanban.Lanes {
		for j, t := range cols[lane] {
			if t.ID == id {
				v.lane = i
				v.cursors[i] = j
				return
			}
		}
	}
	v.clampCursors()
}

// shift moves the selected task one lane left or right
func (v *BoardView) shift(delta int) tea.Cmd {
	t, ok := v.selected()
	if !ok {
		return nil
	}
	for i, lane := range kanban.Lanes {
		if lane == t.Status && i+delta >= 0 && i+delta < len(kanban.Lanes) {
			return v.move(kanban.Lanes[i+delta])
		}
	}
	return nil
}

// move applies a lane drop optimistically and persists it in the background
func (v *BoardView) move(lane models.TaskStatus) tea.Cmd {
	t, ok := v.selected()
	if !ok || v.board == nil {
		return nil
	}
	c, err := v.board.BeginMove(t.ID, lane)
	switch {
	case errors.Is(err, kanban.ErrNoChange):
		return nil
	case err != nil:
		return v.showToast(kanban.Toast{Message: fmt.Sprintf("%s tasks cannot be moved", t.Status)})
	}
	if v.mode == ModeLanes {
		v.follow(t.ID)
	}
	return v.persist(c)
}

func (v *BoardView) persist(c kanban.Change) tea.Cmd {
	b := v.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return persistedMsg{board: b, change: c, err: b.Persist(ctx, c)}
	}
}

func (v *BoardView) showToast(t kanban.Toast) tea.Cmd {
	v.toastID++
	id := v.toastID
	v.toast = &t
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// startEdit opens the form for the selected task, restoring an edit that
// failed to save
func (v *BoardView) startEdit() tea.Cmd {
	t, ok := v.selected()
	if !ok || v.board == nil {
		return nil
	}
	return v.openEdit(t)
}

func (v *BoardView) openEdit(t models.Task) tea.Cmd {
	e := kanban.EditFor(t)
	if pending, ok := v.board.Pending(t.ID); ok {
		if pending.Percent != nil {
			e.Percent = pending.Percent
		}
		if pending.Start != nil {
			e.Start = pending.Start
		}
		if pending.End != nil {
			e.End = pending.End
		}
	}

	v.editing = true
	v.editID = t.ID
	v.editErr = ""
	v.editFocus = fieldPercent
	v.inputs[fieldPercent].SetValue("")
	if e.Percent != nil {
		v.inputs[fieldPercent].SetValue(strconv.Itoa(*e.Percent))
	}
	v.inputs[fieldStart].SetValue(dateValue(e.Start))
	v.inputs[fieldEnd].SetValue(dateValue(e.End))
	v.updateEditFocus()
	return textinput.Blink
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func (v *BoardView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeEdit()
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveEdit()

	case key.Matches(msg, v.keys.Tab):
		v.editFocus = (v.editFocus + 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocus = (v.editFocus + fieldCount - 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.editFocus == fieldSave {
			return v, v.saveEdit()
		}
		v.editFocus++
		v.updateEditFocus()
		return v, nil
	}

	if v.editFocus == fieldSave {
		return v, nil
	}
	var cmd tea.Cmd
	v.inputs[v.editFocus], cmd = v.inputs[v.editFocus].Update(msg)
	return v, cmd
}

func (v *BoardView) updateEditFocus() {
	for i := range v.inputs {
		v.inputs[i].Blur()
	}
	if v.editFocus < fieldSave {
		v.inputs[v.editFocus].Focus()
	}
}

func (v *BoardView) closeEdit() {
	v.editing = false
	v.editErr = ""
	for i := range v.inputs {
		v.inputs[i].Blur()
	}
}

// formEdit reads the form. Empty fields are left unchanged.
func (v *BoardView) formEdit() (kanban.Edit, error) {
	var e kanban.Edit
	if s := strings.TrimSuffix(strings.TrimSpace(v.inputs[fieldPercent].Value()), "%"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			return e, errors.New("percent complete must be a whole number")
		}
		e.Percent = &p
	}
	var err error
	if e.Start, err = parseDate(v.inputs[fieldStart].Value()); err != nil {
		return e, errors.New("start date must be YYYY-MM-DD")
	}
	if e.End, err = parseDate(v.inputs[fieldEnd].Value()); err != nil {
		return e, errors.New("end date must be YYYY-MM-DD")
	}
	return e, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (v *BoardView) saveEdit() tea.Cmd {
	e, err := v.formEdit()
	if err != nil {
		v.editErr = err.Error()
		return nil
	}
	c, err := v.board.BeginSave(v.editID, e)
	if errors.Is(err, kanban.ErrInvalidTransition) {
		t, _ := v.board.Task(v.editID)
		v.editErr = fmt.Sprintf("%s tasks cannot change status", t.Status)
		return nil
	}
	if err != nil {
		v.editErr = err.Error()
		return nil
	}
	v.closeEdit()
	if v.mode == ModeLanes {
		v.follow(c.TaskID)
	}
	return v.persist(c)
}

// View renders the view
func (v *BoardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.picking {
		contentWidth := styles.ContentWidth(v.width)
		centered := lipgloss.Place(contentWidth, v.height, lipgloss.Center, lipgloss.Center, v.picker.View())
		return styles.CenterView(centered, v.width, v.height)
	}
	if v.editing {
		return v.renderEditForm()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	if v.board == nil {
		b.WriteString(v.styles.TitleMuted.Render("Loading tasks..."))
	} else if v.mode == ModeProjects {
		b.WriteString(v.renderProjects())
	} else {
		b.WriteString(v.renderLanes())
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *BoardView) renderHeader() string {
	s := v.styles

	titleText := "My Tasks"
	if v.viewer.ID != v.self.ID {
		titleText = "Tasks for " + v.viewer.Label()
	}
	if v.loading {
		titleText += " (loading)"
	}
	title := s.Title.Render(titleText)

	st := v.data.Stats
	stats := s.TitleMuted.Render(fmt.Sprintf("%d tasks • %d open • %d done • %d in progress • %d%% complete • owns %d of %d projects",
		st.Total, st.Open, st.Completed, st.InProgress, st.WeightedCompleted, st.ProjectsOwned, st.ProjectsInvolved))

	statusLabel := "All"
	if v.status != nil {
		statusLabel = v.status.String()
	}
	projectLabel := "All"
	if p, ok := v.projectFilter(); ok {
		projectLabel = truncate(p.Name, 24)
	}
	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(styles.ContentWidth(v.width)/4, 12, 30)).Render(v.searchInput.View())
	filters := lipgloss.JoinHorizontal(lipgloss.Center,
		searchBox, "  ",
		s.Button.Render("Status: "+statusLabel),
		s.Button.Render("Project: "+projectLabel),
	)

	lines := []string{title, stats, filters}
	if src := renderSource(s, v.data.Source); src != "" {
		lines = append(lines, src)
	}
	if v.toast != nil {
		style := s.ToastError
		if v.toast.Success {
			style = s.Toast
		}
		lines = append(lines, style.Render(v.toast.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *BoardView) renderLanes() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	laneWidth := max(contentWidth/len(kanban.Lanes)-4, 16)

	// Each card is 2 lines
	visible := max((v.height-16)/2, 1)
	cols := kanban.Columns(v.visible())

	var lanes []string
	for i, lane := range kanban.Lanes {
		tasks := cols[lane]
		header := s.LaneHeader.Foreground(styles.StatusColor(lane)).Render(fmt.Sprintf("%s (%d)", lane, len(tasks)))

		var cards []string
		start := scrollWindow(v.cursors[i], visible, len(tasks))
		for j := start; j < min(start+visible, len(tasks)); j++ {
			cards = append(cards, v.renderCard(tasks[j], laneWidth, i == v.lane && j == v.cursors[i]))
		}
		if len(tasks) == 0 {
			cards = append(cards, s.TitleMuted.Render("No tasks"))
		}

		laneStyle := s.Lane
		if i == v.lane {
			laneStyle = s.LaneFocused
		}
		content := lipgloss.JoinVertical(lipgloss.Left, append([]string{header}, cards...)...)
		lanes = append(lanes, laneStyle.Width(laneWidth).Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
}

func (v *BoardView) renderCard(t models.Task, width int, selected bool) string {
	s := v.styles
	style := s.Card.Width(width)
	if selected {
		style = s.CardSelected.Width(width)
	}
	title := truncate(t.Title, width-2)
	meta := fmt.Sprintf("%s • %d%% • due %s", t.ProjectName, t.Percent(), shortDate(t.EndDate))
	if _, failed := v.board.Pending(t.ID); failed {
		meta = "! " + meta
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		style.Render(title),
		style.Foreground(styles.Current.ForegroundDim).Render(truncate(meta, width-2)),
	)
}

func (v *BoardView) renderProjects() string {
	s := v.styles
	rows := v.projectRows()
	if len(rows) == 0 {
		return s.TitleMuted.Render("No tasks match the filters.")
	}

	width := max(styles.ContentWidth(v.width)-4, 20)
	visible := max(v.height-14, 1)
	start := scrollWindow(v.row, visible, len(rows))

	var lines []string
	for i := start; i < min(start+visible, len(rows)); i++ {
		r := rows[i]
		var text string
		if r.task == nil {
			p := r.project
			arrow := "▾"
			if v.collapsed[p.ID] {
				arrow = "▸"
			}
			owner := ""
			if p.IsOwner {
				owner = " (owner)"
			}
			text = fmt.Sprintf("%s %s%s  %d tasks • %d done • %d in progress • %d not started",
				arrow, p.Name, owner, p.TotalTasks, p.CompletedTasks, p.InProgressTasks, p.NotStartedTasks)
		} else {
			t := r.task
			status := lipgloss.NewStyle().Foreground(styles.StatusColor(t.Status)).Render(t.Status.String())
			text = fmt.Sprintf("    %s  %s  %d%%  %s → %s", status, t.Title, t.Percent(), shortDate(t.StartDate), shortDate(t.EndDate))
		}

		style := s.ListItem
		if i == v.row {
			style = s.ListSelected
		}
		lines = append(lines, style.Width(width).Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *BoardView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	t, _ := v.board.Task(v.editID)

	styleFor := func(field int) lipgloss.Style {
		if v.editFocus == field {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.editFocus == fieldSave {
		btnStyle = s.ButtonFocused
	}

	errLine := ""
	if v.editErr != "" {
		errLine = lipgloss.NewStyle().Foreground(styles.Current.Error).Render(v.editErr)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Edit Task"),
		s.TitleMuted.Render(truncate(t.Title, 50)),
		s.TitleMuted.Render(t.ProjectName+" • "+t.Status.String()),
		"",
		"Percent complete:",
		styleFor(fieldPercent).Width(12).Render(v.inputs[fieldPercent].View()),
		"",
		"Start date:",
		styleFor(fieldStart).Width(16).Render(v.inputs[fieldStart].View()),
		"",
		"End date:",
		styleFor(fieldEnd).Width(16).Render(v.inputs[fieldEnd].View()),
		"",
		errLine,
		btnStyle.Render(" Save "),
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *BoardView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 60 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	k := v.styles.HelpKey.Render
	return v.styles.Help.Render(
		fmt.Sprintf("%s move • %s edit • %s status • %s project • %s search • %s list • %s user • %s refresh • %s next view • %s quit",
			k("< >"), k("e"), k("s"), k("p"), k("/"), k("v"), k("u"), k("r"), k("tab"), k("q"),
		),
	)
}

func (v *BoardView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("←→") + "     switch lane",
		s.HelpKey.Render("< >") + "    move task to the next lane",
		s.HelpKey.Render("1-3") + "    move task to a lane",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("s") + "      filter by status",
		s.HelpKey.Render("p") + "      filter by project",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("v") + "      lanes or project list",
		s.HelpKey.Render("space") + "  expand project",
		s.HelpKey.Render("u") + "      view another user",
		s.HelpKey.Render("m") + "      back to my tasks",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("tab") + "    next view",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
