// Package console hosts the user directory listing in a terminal. It feeds
// keyboard and mouse input into a listing.View and renders its outputs.
package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/listing"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// Screen rows above the table body.
const (
	searchLine   = 1
	headerLine   = 3
	firstRowLine = 5
	footerLines  = 3
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	columnGap     = 2
)

// fetchedMsg carries the result of the single directory fetch.
type fetchedMsg struct {
	profiles []entity.Profile
	err      error
}

// Model is the bubbletea model wrapping a listing.View.
type Model struct {
	view    *listing.View
	lister  listing.Lister
	timeout time.Duration
	keys    KeyMap

	search    textinput.Model
	spinner   spinner.Model
	searching bool

	cursor int
	offset int
	width  int
	height int
}

// New returns a model that fetches from lister once on start. A zero
// timeout leaves the fetch unbounded.
func New(view *listing.View, lister listing.Lister, timeout time.Duration) Model {
	search := textinput.New()
	search.Placeholder = "Search by name or user type..."
	search.Prompt = "Search: "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		view:    view,
		lister:  lister,
		timeout: timeout,
		keys:    DefaultKeyMap,
		search:  search,
		spinner: spin,
	}
}

// Listing returns the wrapped listing view.
func (model Model) Listing() *listing.View { return model.view }

func (model Model) fetch() tea.Cmd {
	lister, timeout := model.lister, model.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		profiles, err := lister.ListProfiles(ctx)
		return fetchedMsg{profiles: profiles, err: err}
	}
}

// Init starts the fetch and the loading spinner.
func (model Model) Init() tea.Cmd {
	if !model.view.BeginFetch() {
		return nil
	}
	return tea.Batch(model.spinner.Tick, model.fetch())
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case fetchedMsg:
		model.view.CompleteFetch(message.profiles, message.err)
		model.clampCursor()
		return model, nil

	case spinner.TickMsg:
		if !model.view.IsLoading() {
			return model, nil
		}
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(message)
		return model, cmd

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ensureVisible()
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.MouseMsg:
		cmd := model.handleMouse(message)
		return model, cmd
	}
	return model, nil
}

func (model Model) interactive() bool {
	if model.view.IsLoading() {
		return false
	}
	_, failed := model.view.ErrorMessage()
	return !failed
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if message.Type == tea.KeyCtrlC {
		return model, tea.Quit
	}
	if !model.interactive() {
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		return model, nil
	}
	if model.searching {
		return model.handleSearchKey(message)
	}
	if model.view.DrawerState().Open {
		return model.handleDrawerKey(message)
	}

	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.FilterActivate):
		model.searching = true
		cmd := model.search.Focus()
		return model, cmd
	case key.Matches(message, model.keys.FilterClear):
		model.setFilter("")
	case key.Matches(message, model.keys.Open):
		model.openCursor()
	case key.Matches(message, model.keys.SortColumn):
		model.sortColumn(int(message.Runes[0] - '1'))
	default:
		model.moveCursor(message)
	}
	return model, nil
}

func (model Model) handleSearchKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Close), key.Matches(message, model.keys.Open):
		model.searching = false
		model.search.Blur()
		return model, nil
	case key.Matches(message, model.keys.FilterClear):
		model.setFilter("")
		return model, nil
	}
	var cmd tea.Cmd
	model.search, cmd = model.search.Update(message)
	if model.search.Value() != model.view.FilterText() {
		model.view.OnFilterTextChange(model.search.Value())
		model.clampCursor()
	}
	return model, cmd
}

// handleDrawerKey moves between rows while the drawer stays open on the
// highlighted one.
func (model Model) handleDrawerKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.Close):
		model.view.OnDrawerClose()
	default:
		before := model.cursor
		model.moveCursor(message)
		if model.cursor != before {
			model.openCursor()
		}
	}
	return model, nil
}

func (model *Model) setFilter(text string) {
	model.search.SetValue(text)
	model.view.OnFilterTextChange(text)
	model.clampCursor()
}

func (model *Model) sortColumn(index int) {
	fields := model.view.Fields()
	if index < 0 || index >= len(fields) {
		return
	}
	model.view.OnSortHeaderClick(fields[index].Key)
}

func (model *Model) openCursor() {
	rows := model.view.DisplayedRows()
	if model.cursor < len(rows) {
		model.view.OnRowClick(rows[model.cursor].ID)
	}
}

func (model *Model) moveCursor(message tea.KeyMsg) {
	page := model.visibleRows()
	switch {
	case key.Matches(message, model.keys.Up):
		model.cursor--
	case key.Matches(message, model.keys.Down):
		model.cursor++
	case key.Matches(message, model.keys.PageUp):
		model.cursor -= page
	case key.Matches(message, model.keys.PageDown):
		model.cursor += page
	case key.Matches(message, model.keys.Home):
		model.cursor = 0
	case key.Matches(message, model.keys.End):
		model.cursor = len(model.view.DisplayedRows()) - 1
	default:
		return
	}
	model.clampCursor()
}

func (model *Model) clampCursor() {
	n := len(model.view.DisplayedRows())
	if model.cursor >= n {
		model.cursor = n - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
	model.ensureVisible()
}

func (model *Model) ensureVisible() {
	visible := model.visibleRows()
	if model.cursor < model.offset {
		model.offset = model.cursor
	}
	if model.cursor >= model.offset+visible {
		model.offset = model.cursor - visible + 1
	}
	if model.offset < 0 {
		model.offset = 0
	}
}

func (model Model) size() (int, int) {
	w, h := model.width, model.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (model Model) visibleRows() int {
	_, h := model.size()
	if n := h - firstRowLine - footerLines; n > 0 {
		return n
	}
	return 1
}

// panelWidth is the drawer width; the table keeps the rest of the screen.
func (model Model) panelWidth() int {
	w, _ := model.size()
	p := w / 2
	if p > 60 {
		p = 60
	}
	if p < 30 {
		p = 30
	}
	if p > w {
		p = w
	}
	return p
}

// handleMouse maps clicks onto view events. With the drawer open, the
// screen left of the panel is the overlay.
func (model *Model) handleMouse(message tea.MouseMsg) tea.Cmd {
	if !model.interactive() {
		return nil
	}
	switch message.Button {
	case tea.MouseButtonWheelUp:
		if !model.view.DrawerState().Open {
			model.cursor--
			model.clampCursor()
		}
		return nil
	case tea.MouseButtonWheelDown:
		if !model.view.DrawerState().Open {
			model.cursor++
			model.clampCursor()
		}
		return nil
	case tea.MouseButtonLeft:
		if message.Action != tea.MouseActionPress {
			return nil
		}
	default:
		return nil
	}

	if model.view.DrawerState().Open {
		w, _ := model.size()
		if message.X < w-model.panelWidth() {
			model.view.OnOverlayClick()
		} else {
			model.view.OnPanelClick()
		}
		return nil
	}

	switch {
	case message.Y == searchLine:
		model.searching = true
		return model.search.Focus()
	case message.Y == headerLine:
		if i := model.columnAt(message.X); i >= 0 {
			model.view.OnSortHeaderClick(model.view.Fields()[i].Key)
		}
	case message.Y >= firstRowLine && message.Y < firstRowLine+model.visibleRows():
		rows := model.view.DisplayedRows()
		i := model.offset + message.Y - firstRowLine
		if i < len(rows) {
			model.cursor = i
			model.view.OnRowClick(rows[i].ID)
		}
	}
	return nil
}

// columnAt returns the index of the column under x, or -1 for a gap.
func (model Model) columnAt(x int) int {
	start := 0
	for i, f := range model.view.Fields() {
		w := columnWidth(f)
		if x >= start && x < start+w {
			return i
		}
		start += w + columnGap
	}
	return -1
}

func columnWidth(f listing.Field) int {
	if f.Width > 0 {
		return f.Width
	}
	return 18
}
