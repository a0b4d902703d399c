// Package substitution is the read-only lookup of exercise alternatives and form notes.
package substitution

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	_ "embed"
)

//go:embed table.toml
var defaultTable string

// Entry is one exercise of the table.
type Entry struct {
	Name        string   `toml:"name"`
	Substitutes []string `toml:"substitutes"`
	// Notes is markdown.
	Notes string `toml:"notes"`
}

type file struct {
	Exercises []Entry `toml:"exercise"`
}

// Table maps exercise names to their substitutes and notes. The zero value is an empty table.
type Table struct {
	entries map[string]Entry
}

// Default returns the built-in table.
func Default() (*Table, error) {
	t, err := Parse(defaultTable)
	if err != nil {
		return nil, fmt.Errorf("parse built-in table: %w", err)
	}
	return t, nil
}

// Parse reads a table in TOML. Unknown keys, blank or duplicate names and self-substitutions are errors.
func Parse(data string) (*Table, error) {
	var f file
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	t := &Table{entries: make(map[string]Entry, len(f.Exercises))}
	for i, e := range f.Exercises {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("exercise %d: name is empty", i)
		}
		k := key(e.Name)
		if _, ok := t.entries[k]; ok {
			return nil, fmt.Errorf("exercise %q: duplicate", e.Name)
		}
		if slices.ContainsFunc(e.Substitutes, func(s string) bool { return key(s) == k }) {
			return nil, fmt.Errorf("exercise %q: substitutes itself", e.Name)
		}
		e.Notes = strings.TrimSpace(e.Notes)
		t.entries[k] = e
	}
	return t, nil
}

// SubstitutesFor returns the alternatives for name, or nil when there are none.
func (t *Table) SubstitutesFor(name string) []string {
	e, ok := t.entries[key(name)]
	if !ok || len(e.Substitutes) == 0 {
		return nil
	}
	return slices.Clone(e.Substitutes)
}

// NotesFor returns the form notes of name.
func (t *Table) NotesFor(name string) (string, bool) {
	e, ok := t.entries[key(name)]
	if !ok || e.Notes == "" {
		return "", false
	}
	return e.Notes, true
}

// Names lists every exercise in the table in alphabetical order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	slices.Sort(names)
	return names
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
