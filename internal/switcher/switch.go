package switcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
)

// commandFormat is the switch command. The firmware expects the line to be
// terminated by LF followed by CR.
const commandFormat = "SET SW %s %s\n\r"

var (
	// ErrUnsupportedPort is returned when an alias targets a port that
	// does not exist for its direction.
	ErrUnsupportedPort = errors.New("unsupported port")

	// ErrUnsupportedName is returned when a name is neither an alias nor
	// a canonical port name.
	ErrUnsupportedName = errors.New("unsupported name")
)

// Entry is a single name -> port pair of a default or alias mapping.
type Entry struct {
	Name string
	Port model.Port
}

// portTable is an insertion-ordered name -> port mapping. Setting an
// existing name replaces its port but keeps its position.
type portTable struct {
	order []string
	ports map[string]model.Port
}

func newPortTable() *portTable {
	return &portTable{ports: make(map[string]model.Port)}
}

func (t *portTable) set(name string, p model.Port) {
	if _, exists := t.ports[name]; !exists {
		t.order = append(t.order, name)
	}
	t.ports[name] = p
}

func (t *portTable) get(name string) (model.Port, bool) {
	p, ok := t.ports[name]
	return p, ok
}

func (t *portTable) entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, Entry{Name: name, Port: t.ports[name]})
	}
	return out
}

// Switch resolves input and output names for one CLI invocation.
// It is populated once with aliases, then read; it is not safe for
// concurrent use.
type Switch struct {
	defaults map[model.Direction]*portTable
	aliases  map[model.Direction]*portTable

	// keyWidth caches the length of the longest name across all four
	// mappings. Zero means not yet computed.
	keyWidth int
}

// New creates a Switch with the default mappings of both directions and
// no aliases.
func New() *Switch {
	s := &Switch{
		defaults: make(map[model.Direction]*portTable),
		aliases:  make(map[model.Direction]*portTable),
	}
	for _, d := range model.Directions() {
		defaults := newPortTable()
		for _, p := range model.Ports(d) {
			defaults.set(p.String(), p)
		}
		s.defaults[d] = defaults
		s.aliases[d] = newPortTable()
	}
	return s
}

// RegisterAlias maps alias to the canonical port name target for the
// given direction. Registering an existing alias again replaces it.
//
// The target is validated here, not at resolution time: an invalid target
// returns an error wrapping ErrUnsupportedPort and leaves the Switch
// unchanged.
func (s *Switch) RegisterAlias(d model.Direction, alias, target string) error {
	if !d.IsValid() {
		return fmt.Errorf("invalid direction %d", int(d))
	}
	if alias == "" {
		return fmt.Errorf("%s alias for %q must not be empty", d, target)
	}

	p, err := model.ParsePort(d, target)
	if err != nil {
		return fmt.Errorf("%s %q is not a supported %s: %w (%v)", d, target, d, ErrUnsupportedPort, err)
	}

	if _, exists := s.aliases[d].get(alias); !exists {
		s.keyWidth = 0
	}
	s.aliases[d].set(alias, p)
	return nil
}

// LoadInputAlias registers an input alias.
func (s *Switch) LoadInputAlias(alias, target string) error {
	return s.RegisterAlias(model.Input, alias, target)
}

// LoadOutputAlias registers an output alias.
func (s *Switch) LoadOutputAlias(alias, target string) error {
	return s.RegisterAlias(model.Output, alias, target)
}

// Resolve looks name up in the alias mapping of the direction, then in its
// default mapping. Unknown names return an error wrapping
// ErrUnsupportedName.
func (s *Switch) Resolve(d model.Direction, name string) (model.Port, error) {
	if !d.IsValid() {
		return 0, fmt.Errorf("invalid direction %d", int(d))
	}
	if p, ok := s.aliases[d].get(name); ok {
		return p, nil
	}
	if p, ok := s.defaults[d].get(name); ok {
		return p, nil
	}
	return 0, fmt.Errorf("%s %q not supported: %w", d, name, ErrUnsupportedName)
}

// BuildCommand resolves the input name, then the output name, and formats
// the switch command. The output is not looked at when the input fails.
func (s *Switch) BuildCommand(inputName, outputName string) (string, error) {
	in, err := s.Resolve(model.Input, inputName)
	if err != nil {
		return "", err
	}
	out, err := s.Resolve(model.Output, outputName)
	if err != nil {
		return "", err
	}
	return Command(in, out)
}

// Command formats the switch command for an already resolved pair of
// ports.
func Command(in, out model.Port) (string, error) {
	if in.Direction() != model.Input {
		return "", fmt.Errorf("%s is not an input port: %w", in, ErrUnsupportedPort)
	}
	if out.Direction() != model.Output {
		return "", fmt.Errorf("%s is not an output port: %w", out, ErrUnsupportedPort)
	}
	return fmt.Sprintf(commandFormat, in, out), nil
}

// Defaults returns the default mapping of the direction in port order.
func (s *Switch) Defaults(d model.Direction) []Entry {
	if t, ok := s.defaults[d]; ok {
		return t.entries()
	}
	return nil
}

// Aliases returns the alias mapping of the direction in registration order.
func (s *Switch) Aliases(d model.Direction) []Entry {
	if t, ok := s.aliases[d]; ok {
		return t.entries()
	}
	return nil
}

// KeyWidth returns the length of the longest name across the defaults and
// aliases of both directions. The value is computed on first use and
// cached until a new alias name is registered.
func (s *Switch) KeyWidth() int {
	if s.keyWidth > 0 {
		return s.keyWidth
	}
	for _, d := range model.Directions() {
		for _, table := range []*portTable{s.defaults[d], s.aliases[d]} {
			for _, name := range table.order {
				if len(name) > s.keyWidth {
					s.keyWidth = len(name)
				}
			}
		}
	}
	return s.keyWidth
}

// ListDefaults renders the default mapping of the direction, one
// "    name: port" line per entry with values aligned across all mappings.
func (s *Switch) ListDefaults(d model.Direction) string {
	return s.render(s.Defaults(d))
}

// ListAliases renders the alias mapping of the direction like ListDefaults.
// It returns an empty string when no aliases are registered.
func (s *Switch) ListAliases(d model.Direction) string {
	return s.render(s.Aliases(d))
}

func (s *Switch) render(entries []Entry) string {
	width := s.KeyWidth()

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "    %s: %s%s\n", e.Name, strings.Repeat(" ", width-len(e.Name)), e.Port)
	}
	return b.String()
}
