package listing

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// Direction is the sort order of the active column.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// SortState is the active sort column and its direction. An empty Field
// keeps snapshot order.
type SortState struct {
	Field     FieldKey
	Direction Direction
}

// Toggle applies a header click: the active column flips direction, any
// other column becomes active ascending.
func (s SortState) Toggle(key FieldKey) SortState {
	if s.Field == key {
		if s.Direction == Asc {
			return SortState{Field: key, Direction: Desc}
		}
		return SortState{Field: key, Direction: Asc}
	}
	return SortState{Field: key, Direction: Asc}
}

// Engine derives displayed rows from a snapshot. It is not safe for
// concurrent use because the collator keeps internal buffers.
type Engine struct {
	fields Fields
	coll   *collate.Collator
}

// NewEngine builds an engine over fields, ordering values with the collation
// rules of tag.
func NewEngine(fields Fields, tag language.Tag) *Engine {
	return &Engine{fields: fields, coll: collate.New(tag)}
}

// Filter keeps profiles where the lower-cased text is a substring of at
// least one searchable field. Absent values match as "".
func (e *Engine) Filter(snapshot []entity.Profile, text string) []entity.Profile {
	out := make([]entity.Profile, 0, len(snapshot))
	if text == "" {
		return append(out, snapshot...)
	}
	q := strings.ToLower(text)
	keys := e.fields.Searchable()
	for _, p := range snapshot {
		for _, k := range keys {
			if strings.Contains(strings.ToLower(p.Value(string(k))), q) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Sort returns a stably sorted copy of rows. Descending order negates the
// ascending comparison so ties keep their snapshot order either way.
func (e *Engine) Sort(rows []entity.Profile, s SortState) []entity.Profile {
	out := slices.Clone(rows)
	if s.Field == "" {
		return out
	}
	key := string(s.Field)
	slices.SortStableFunc(out, func(a, b entity.Profile) int {
		c := e.coll.CompareString(strings.ToLower(a.Value(key)), strings.ToLower(b.Value(key)))
		if s.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

// Apply recomputes displayed rows from scratch.
func (e *Engine) Apply(snapshot []entity.Profile, text string, s SortState) []entity.Profile {
	return e.Sort(e.Filter(snapshot, text), s)
}
