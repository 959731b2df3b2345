package intent

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"mitravox/internal/lang"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Target is a screen of the app the assistant can navigate to.
type Target struct {
	ID     string               `yaml:"id"`
	Path   string               `yaml:"path"`
	Labels map[lang.Code]string `yaml:"labels"`
}

// Label is the spoken name of the screen, English when c has none.
func (t Target) Label(c lang.Code) string {
	if l, ok := t.Labels[c]; ok && l != "" {
		return l
	}
	return t.Labels[lang.English]
}

type Route struct {
	Target   string   `yaml:"target"`
	Keywords []string `yaml:"keywords"`
}

// Table is the navigation table: known targets plus an ordered route list
// per language.
type Table struct {
	Targets []Target              `yaml:"targets"`
	Routes  map[lang.Code][]Route `yaml:"routes"`

	byID map[string]Target
}

func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty route table")
		}
		return nil, fmt.Errorf("decode route table: %w", err)
	}

	if err := t.index(); err != nil {
		return nil, err
	}

	return &t, nil
}

// DefaultTable returns the embedded table of the app's screens.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(defaultRoutes))
	if err != nil {
		panic(fmt.Sprintf("embedded routes.yaml: %v", err))
	}
	return t
}

func (t *Table) Target(id string) (Target, bool) {
	tg, ok := t.byID[id]
	return tg, ok
}

func (t *Table) index() error {
	if len(t.Targets) == 0 {
		return errors.New("route table has no targets")
	}

	t.byID = make(map[string]Target, len(t.Targets))
	for i, tg := range t.Targets {
		if tg.ID == "" {
			return fmt.Errorf("target #%d: empty id", i)
		}
		if _, dup := t.byID[tg.ID]; dup {
			return fmt.Errorf("target %q: duplicate id", tg.ID)
		}
		for _, c := range lang.All {
			if tg.Labels[c] == "" {
				return fmt.Errorf("target %q: missing %s label", tg.ID, c)
			}
		}
		t.byID[tg.ID] = tg
	}

	for c, routes := range t.Routes {
		if !c.Valid() {
			return fmt.Errorf("routes: unsupported language %q", c)
		}
		for i, r := range routes {
			if _, ok := t.byID[r.Target]; !ok {
				return fmt.Errorf("routes.%s[%d]: unknown target %q", c, i, r.Target)
			}
			if len(r.Keywords) == 0 {
				return fmt.Errorf("routes.%s[%d]: no keywords", c, i)
			}
			for j, kw := range r.Keywords {
				if normalize(kw) == "" {
					return fmt.Errorf("routes.%s[%d]: empty keyword #%d", c, i, j)
				}
			}
		}
	}

	return nil
}
