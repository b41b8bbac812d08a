package listing

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldKey names a profile column.
type FieldKey string

const (
	FieldFirstName FieldKey = "first_name"
	FieldLastName  FieldKey = "last_name"
	FieldUserType  FieldKey = "user_type"
	FieldStatus    FieldKey = "status"
	FieldAvatarURL FieldKey = "avatar_url"
	FieldUpdatedAt FieldKey = "updated_at"
	FieldID        FieldKey = "id"
)

var defaultLabels = map[FieldKey]string{
	FieldFirstName: "First Name",
	FieldLastName:  "Last Name",
	FieldUserType:  "User Type",
	FieldStatus:    "Status",
	FieldAvatarURL: "Avatar",
	FieldUpdatedAt: "Last Updated",
	FieldID:        "ID",
}

// Field describes one column of the listing: whether the filter looks at it
// and whether its header toggles sorting.
type Field struct {
	Key        FieldKey `yaml:"key"`
	Label      string   `yaml:"label"`
	Searchable bool     `yaml:"searchable"`
	Sortable   bool     `yaml:"sortable"`
	// Width is a rendering hint in terminal cells; zero lets the host decide.
	Width int `yaml:"width,omitempty"`
}

// Fields is an ordered column set.
type Fields []Field

// DefaultFields searches names and user type and sorts on all four columns.
func DefaultFields() Fields {
	return Fields{
		{Key: FieldFirstName, Label: "First Name", Searchable: true, Sortable: true},
		{Key: FieldLastName, Label: "Last Name", Searchable: true, Sortable: true},
		{Key: FieldUserType, Label: "User Type", Searchable: true, Sortable: true},
		{Key: FieldStatus, Label: "Status", Sortable: true},
	}
}

// ExtendedFields is DefaultFields with status also searchable.
func ExtendedFields() Fields {
	fs := DefaultFields()
	for i := range fs {
		if fs[i].Key == FieldStatus {
			fs[i].Searchable = true
		}
	}
	return fs
}

// Lookup returns the field with the given key.
func (fs Fields) Lookup(key FieldKey) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Searchable returns the keys the filter matches against, in column order.
func (fs Fields) Searchable() []FieldKey {
	var out []FieldKey
	for _, f := range fs {
		if f.Searchable {
			out = append(out, f.Key)
		}
	}
	return out
}

type fieldsFile struct {
	Columns Fields `yaml:"columns"`
}

// LoadFields decodes a column set of the form
//
//	columns:
//	  - key: first_name
//	    label: First Name
//	    searchable: true
//	    sortable: true
//
// Missing labels default to the built-in label for the key.
func LoadFields(r io.Reader) (Fields, error) {
	var file fieldsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	if len(file.Columns) == 0 {
		return nil, fmt.Errorf("decode columns: no columns defined")
	}
	seen := make(map[FieldKey]bool, len(file.Columns))
	for i := range file.Columns {
		f := &file.Columns[i]
		label, known := defaultLabels[f.Key]
		if !known {
			return nil, fmt.Errorf("column %d: unknown key %q", i, f.Key)
		}
		if seen[f.Key] {
			return nil, fmt.Errorf("column %d: duplicate key %q", i, f.Key)
		}
		seen[f.Key] = true
		if f.Label == "" {
			f.Label = label
		}
	}
	return file.Columns, nil
}

// LoadFieldsFile reads a column set from a YAML file.
func LoadFieldsFile(path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFields(f)
}
