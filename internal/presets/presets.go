// Package presets holds the built-in program templates and generates program graphs from them.
package presets

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtin embed.FS

// ErrUnknownPreset is returned by Generate for an id that is not in the catalog.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset summarizes a program template.
type Preset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalWeeks  int    `json:"totalWeeks"`
	DaysPerWeek int    `json:"daysPerWeek"`
}

type presetFile struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	TotalWeeks  int       `yaml:"totalWeeks"`
	Days        []dayFile `yaml:"days"`
}

type dayFile struct {
	Name   string      `yaml:"name"`
	Day    int         `yaml:"day"`
	Phases []phaseFile `yaml:"phases"`
}

// phaseFile is the version of a day in effect from FromWeek until the next phase.
type phaseFile struct {
	FromWeek  int            `yaml:"fromWeek"`
	Exercises []exerciseFile `yaml:"exercises"`
}

type exerciseFile struct {
	Name  string `yaml:"name"`
	Sets  int    `yaml:"sets"`
	Reps  string `yaml:"reps"`
	Notes string `yaml:"notes"`
}

// Catalog is a validated set of presets ordered by file name.
type Catalog struct {
	presets []presetFile
}

// Default returns the catalog of built-in presets.
func Default() (*Catalog, error) {
	return Load(builtin)
}

// Load reads every *.yaml file under fsys. A malformed preset fails the whole load.
func Load(fsys fs.FS) (*Catalog, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".yaml" {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk presets: %w", err)
	}

	c := &Catalog{presets: make([]presetFile, 0, len(paths))}
	for _, p := range paths {
		var data []byte
		if data, err = fs.ReadFile(fsys, p); err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		var pf presetFile
		if pf, err = parse(data); err != nil {
			return nil, fmt.Errorf("preset %s: %w", path.Base(p), err)
		}
		if slices.ContainsFunc(c.presets, func(existing presetFile) bool { return existing.ID == pf.ID }) {
			return nil, fmt.Errorf("preset %s: duplicate id %q", path.Base(p), pf.ID)
		}
		c.presets = append(c.presets, pf)
	}
	return c, nil
}

func parse(data []byte) (presetFile, error) {
	var pf presetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return presetFile{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := pf.validate(); err != nil {
		return presetFile{}, err
	}
	return pf, nil
}

func (pf presetFile) validate() error {
	if strings.TrimSpace(pf.ID) == "" {
		return errors.New("id is empty")
	}
	if strings.TrimSpace(pf.Name) == "" {
		return errors.New("name is empty")
	}
	if pf.TotalWeeks < 1 {
		return fmt.Errorf("totalWeeks %d is below 1", pf.TotalWeeks)
	}
	if len(pf.Days) == 0 {
		return errors.New("no days")
	}
	seenDays := map[int]bool{}
	for _, d := range pf.Days {
		if d.Day < 0 || d.Day > 6 {
			return fmt.Errorf("day %q: index %d outside 0-6", d.Name, d.Day)
		}
		if seenDays[d.Day] {
			return fmt.Errorf("day %q: index %d used twice", d.Name, d.Day)
		}
		seenDays[d.Day] = true
		if len(d.Phases) == 0 || d.Phases[0].FromWeek != 1 {
			return fmt.Errorf("day %q: first phase must start in week 1", d.Name)
		}
		for i, ph := range d.Phases {
			if i > 0 && ph.FromWeek <= d.Phases[i-1].FromWeek {
				return fmt.Errorf("day %q: phase weeks must increase", d.Name)
			}
			if ph.FromWeek > pf.TotalWeeks {
				return fmt.Errorf("day %q: phase week %d after the last week", d.Name, ph.FromWeek)
			}
			if len(ph.Exercises) == 0 {
				return fmt.Errorf("day %q week %d: no exercises", d.Name, ph.FromWeek)
			}
			for _, e := range ph.Exercises {
				if strings.TrimSpace(e.Name) == "" || e.Sets < 1 || strings.TrimSpace(e.Reps) == "" {
					return fmt.Errorf("day %q week %d: exercise %q needs a name, sets and reps",
						d.Name, ph.FromWeek, e.Name)
				}
			}
		}
	}
	return nil
}

// List summarizes the presets in catalog order.
func (c *Catalog) List() []Preset {
	list := make([]Preset, 0, len(c.presets))
	for _, pf := range c.presets {
		list = append(list, Preset{
			ID:          pf.ID,
			Name:        pf.Name,
			Description: pf.Description,
			TotalWeeks:  pf.TotalWeeks,
			DaysPerWeek: len(pf.Days),
		})
	}
	return list
}

// Generate builds the program graph of preset id starting on startDate. Every phase of a day becomes a template
// with the day's name and the phase's first week.
func (c *Catalog) Generate(id string, startDate time.Time) (workout.ProgramGraph, error) {
	i := slices.IndexFunc(c.presets, func(pf presetFile) bool { return pf.ID == id })
	if i < 0 {
		return workout.ProgramGraph{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	pf := c.presets[i]

	graph := workout.ProgramGraph{
		Name:       pf.Name,
		StartDate:  startDate,
		TotalWeeks: pf.TotalWeeks,
		Templates:  nil,
	}
	for _, d := range pf.Days {
		for _, ph := range d.Phases {
			tg := workout.TemplateGraph{
				Name:       d.Name,
				DayIndex:   d.Day,
				WeekNumber: ph.FromWeek,
				Exercises:  make([]workout.ExerciseGraph, 0, len(ph.Exercises)),
			}
			for _, e := range ph.Exercises {
				tg.Exercises = append(tg.Exercises, workout.ExerciseGraph{
					Name:       strings.TrimSpace(e.Name),
					TargetSets: e.Sets,
					TargetReps: strings.TrimSpace(e.Reps),
					Notes:      e.Notes,
				})
			}
			graph.Templates = append(graph.Templates, tg)
		}
	}
	return graph, nil
}
