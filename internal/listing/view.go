// Package listing is the interaction model of the user directory: a
// snapshot fetched once, a filter and sort derived from it, and a detail
// drawer over the displayed rows. Hosts feed it input events and render its
// outputs; it does no I/O of its own beyond the single fetch.
package listing

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// Sort header indicators.
const (
	IndicatorUnsorted = "↕"
	IndicatorAsc      = "↑"
	IndicatorDesc     = "↓"
)

type phase int

const (
	phaseIdle phase = iota
	phaseLoading
	phaseReady
	phaseFailed
)

// View holds the state of one directory view. A View is single-use: a
// reload is a new View. It is not safe for concurrent use.
type View struct {
	fields     Fields
	lang       language.Tag
	loc        *time.Location
	decorators []Decorator
	engine     *Engine

	phase    phase
	snapshot []entity.Profile
	errMsg   string

	filterText string
	sort       SortState
	drawer     Drawer
	displayed  []entity.Profile
}

// Option configures a View.
type Option func(*View)

// WithFields replaces the default column set.
func WithFields(fs Fields) Option {
	return func(v *View) { v.fields = fs }
}

// WithLanguage selects the collation used for sorting.
func WithLanguage(tag language.Tag) Option {
	return func(v *View) { v.lang = tag }
}

// WithLocation sets the zone Last Updated is shown in.
func WithLocation(loc *time.Location) Option {
	return func(v *View) { v.loc = loc }
}

// WithDecorators appends drawer decorators.
func WithDecorators(ds ...Decorator) Option {
	return func(v *View) { v.decorators = append(v.decorators, ds...) }
}

func NewView(opts ...Option) *View {
	v := &View{fields: DefaultFields(), lang: language.English, loc: time.Local}
	for _, o := range opts {
		o(v)
	}
	v.engine = NewEngine(v.fields, v.lang)
	return v
}

// Fields returns the column set.
func (v *View) Fields() Fields { return v.fields }

// interactive reports whether input events apply: a snapshot is loaded.
func (v *View) interactive() bool { return v.phase == phaseReady }

func (v *View) recompute() {
	v.displayed = v.engine.Apply(v.snapshot, v.filterText, v.sort)
}

// OnFilterTextChange sets the filter text. Ignored until the snapshot is loaded.
func (v *View) OnFilterTextChange(text string) {
	if !v.interactive() {
		return
	}
	v.filterText = text
	v.recompute()
}

// OnSortHeaderClick toggles sorting on key. Unknown and non-sortable keys are ignored.
func (v *View) OnSortHeaderClick(key FieldKey) {
	if !v.interactive() {
		return
	}
	f, ok := v.fields.Lookup(key)
	if !ok || !f.Sortable {
		return
	}
	v.sort = v.sort.Toggle(key)
	v.recompute()
}

// OnRowClick opens the drawer on the displayed row with the given id. Ids
// that are not currently displayed are ignored.
func (v *View) OnRowClick(id string) {
	if !v.interactive() {
		return
	}
	for _, p := range v.displayed {
		if p.ID == id {
			v.drawer.Show(p)
			return
		}
	}
}

// OnDrawerClose handles the drawer's close control.
func (v *View) OnDrawerClose() { v.drawer.Close() }

// OnOverlayClick handles a click on the background outside the drawer panel.
func (v *View) OnOverlayClick() { v.drawer.Close() }

// OnPanelClick handles a click inside the drawer panel; it never closes the drawer.
func (v *View) OnPanelClick() {}

// DisplayedRows returns the filtered and sorted rows, or nil when no
// snapshot is loaded.
func (v *View) DisplayedRows() []entity.Profile {
	if !v.interactive() {
		return nil
	}
	return slices.Clone(v.displayed)
}

// DrawerState returns the drawer state.
func (v *View) DrawerState() DrawerState { return v.drawer.State() }

// Detail returns the drawer content when the drawer is open.
func (v *View) Detail() (Detail, bool) {
	if !v.drawer.IsOpen() {
		return Detail{}, false
	}
	p, _ := v.drawer.Selected()
	return BuildDetail(p, v.loc, v.decorators...), true
}

// IsLoading reports whether the snapshot is still outstanding.
func (v *View) IsLoading() bool { return v.phase == phaseIdle || v.phase == phaseLoading }

// ErrorMessage returns the fetch failure message, if the fetch failed.
func (v *View) ErrorMessage() (string, bool) {
	if v.phase != phaseFailed {
		return "", false
	}
	return v.errMsg, true
}

// FilterText returns the current filter text.
func (v *View) FilterText() string { return v.filterText }

// Sort returns the current sort state.
func (v *View) Sort() SortState { return v.sort }

// SortIndicator returns the header marker for key.
func (v *View) SortIndicator(key FieldKey) string {
	if v.sort.Field != key {
		return IndicatorUnsorted
	}
	if v.sort.Direction == Desc {
		return IndicatorDesc
	}
	return IndicatorAsc
}

// Summary returns the row count line shown under the table.
func (v *View) Summary() string {
	return fmt.Sprintf("Showing %d of %d users", len(v.displayed), len(v.snapshot))
}
