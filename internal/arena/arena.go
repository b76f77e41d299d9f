// Package arena is the catalogue of playable field variants.
package arena

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed arenas.yaml
var catalogueYAML []byte

// ErrUnknownArena is returned for names not in the catalogue.
var ErrUnknownArena = errors.New("unknown arena")

// Ball holds the physical properties of the ball.
type Ball struct {
	Radius      float64 `yaml:"radius"`
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
	Drag        float64 `yaml:"drag"`
	MaxSpeed    float64 `yaml:"max_speed"`
}

// Goal is the mouth cut into each back wall. A zero HalfWidth means no goal.
type Goal struct {
	HalfWidth float64 `yaml:"half_width"`
	Height    float64 `yaml:"height"`
	Depth     float64 `yaml:"depth"`
}

// Field is the box the ball bounces around in.
type Field struct {
	HalfWidth  float64 `yaml:"half_width"`
	HalfLength float64 `yaml:"half_length"`
	Ceiling    float64 `yaml:"ceiling"`
	Goal       Goal    `yaml:"goal"`
}

// Arena is one field variant.
type Arena struct {
	Name    string   `yaml:"-"`
	Aliases []string `yaml:"aliases"`
	Gravity float64  `yaml:"gravity"`
	Ball    Ball     `yaml:"ball"`
	Field   Field    `yaml:"field"`
}

// HasGoal reports whether the back walls have an open goal mouth.
func (a Arena) HasGoal() bool {
	return a.Field.Goal.HalfWidth > 0
}

var (
	loadOnce  sync.Once
	catalogue map[string]Arena
	loadErr   error
)

// Parse decodes a catalogue document keyed by arena name.
func Parse(data []byte) (map[string]Arena, error) {
	raw := map[string]Arena{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing arena catalogue: %w", err)
	}

	out := make(map[string]Arena, len(raw))
	for name, a := range raw {
		if a.Ball.Radius <= 0 || a.Field.HalfWidth <= 0 || a.Field.HalfLength <= 0 {
			return nil, fmt.Errorf("arena %s: missing ball or field dimensions", name)
		}
		a.Name = name
		out[normalize(name)] = a
		for _, alias := range a.Aliases {
			out[normalize(alias)] = a
		}
	}
	return out, nil
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func load() (map[string]Arena, error) {
	loadOnce.Do(func() {
		catalogue, loadErr = Parse(catalogueYAML)
	})
	return catalogue, loadErr
}

// Get looks an arena up by name or alias, case-insensitively.
func Get(name string) (Arena, error) {
	c, err := load()
	if err != nil {
		return Arena{}, err
	}
	a, ok := c[normalize(name)]
	if !ok {
		return Arena{}, fmt.Errorf("%w: %s", ErrUnknownArena, name)
	}
	return a, nil
}

// Names lists the canonical arena names.
func Names() []string {
	c, err := load()
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, a := range c {
		if !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	sort.Strings(names)
	return names
}
