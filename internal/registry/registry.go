package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Registry holds the domain constant tables used by standardization and
// quality scoring. It is built once at start-up and passed explicitly; it is
// never mutated after construction.
type Registry struct {
	ranges       map[string]Range
	entries      []MnemonicEntry
	byName       map[string]*MnemonicEntry
	conversions  []UnitConversion
	correlations []Correlation
}

// Overrides is the YAML document accepted by Load. Ranges replace defaults per
// mnemonic, mnemonic entries replace defaults with the same standard name,
// conversions replace by (mnemonic, from) and correlations by pair.
type Overrides struct {
	PhysicalRanges map[string]Range `yaml:"physical_ranges"`
	Mnemonics      []MnemonicEntry  `yaml:"mnemonics"`
	Conversions    []UnitConversion `yaml:"conversions"`
	Correlations   []Correlation    `yaml:"correlations"`
}

// Default returns the built-in tables.
func Default() *Registry {
	return build(defaultRanges(), defaultMnemonics(), defaultConversions(), defaultCorrelations())
}

// Load returns the built-in tables merged with the YAML overrides at path.
// An empty path returns Default().
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read overrides")
	}
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, eris.Wrap(err, "registry: parse overrides")
	}
	r, err := Merge(Default(), ov)
	if err != nil {
		return nil, err
	}
	zap.L().Info("registry: loaded overrides",
		zap.String("path", path),
		zap.Int("ranges", len(ov.PhysicalRanges)),
		zap.Int("mnemonics", len(ov.Mnemonics)),
	)
	return r, nil
}

// Merge returns a new registry with ov applied on top of base.
func Merge(base *Registry, ov Overrides) (*Registry, error) {
	if err := ov.Validate(); err != nil {
		return nil, err
	}

	ranges := make(map[string]Range, len(base.ranges)+len(ov.PhysicalRanges))
	for k, v := range base.ranges {
		ranges[k] = v
	}
	for k, v := range ov.PhysicalRanges {
		ranges[strings.ToUpper(k)] = v
	}

	entries := append([]MnemonicEntry(nil), base.entries...)
	for _, e := range ov.Mnemonics {
		e.Standard = strings.ToUpper(e.Standard)
		replaced := false
		for i := range entries {
			if entries[i].Standard == e.Standard {
				entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, e)
		}
	}

	conversions := append([]UnitConversion(nil), base.conversions...)
	for _, c := range ov.Conversions {
		c.Mnemonic, c.From = strings.ToUpper(c.Mnemonic), strings.ToUpper(c.From)
		replaced := false
		for i := range conversions {
			if conversions[i].Mnemonic == c.Mnemonic && conversions[i].From == c.From {
				conversions[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			conversions = append(conversions, c)
		}
	}

	correlations := append([]Correlation(nil), base.correlations...)
	for _, c := range ov.Correlations {
		c.A, c.B = strings.ToUpper(c.A), strings.ToUpper(c.B)
		replaced := false
		for i := range correlations {
			if samePair(correlations[i], c) {
				correlations[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			correlations = append(correlations, c)
		}
	}

	return build(ranges, entries, conversions, correlations), nil
}

// Validate checks an override document and reports every problem at once.
func (ov Overrides) Validate() error {
	var errs []string
	for k, r := range ov.PhysicalRanges {
		if !(r.Min < r.Max) {
			errs = append(errs, fmt.Sprintf("physical_ranges.%s: min must be below max", k))
		}
	}
	for i, e := range ov.Mnemonics {
		if e.Standard == "" {
			errs = append(errs, fmt.Sprintf("mnemonics[%d]: standard is required", i))
		}
	}
	for i, c := range ov.Conversions {
		if c.Mnemonic == "" || c.From == "" || c.Factor == 0 {
			errs = append(errs, fmt.Sprintf("conversions[%d]: mnemonic, from and a non-zero factor are required", i))
		}
	}
	for i, c := range ov.Correlations {
		if c.A == "" || c.B == "" || c.Expected < -1 || c.Expected > 1 {
			errs = append(errs, fmt.Sprintf("correlations[%d]: both curves and an expected value in [-1, 1] are required", i))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("registry: invalid overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}

func build(ranges map[string]Range, entries []MnemonicEntry, conversions []UnitConversion, correlations []Correlation) *Registry {
	r := &Registry{
		ranges:       ranges,
		entries:      entries,
		byName:       make(map[string]*MnemonicEntry, len(entries)*4),
		conversions:  conversions,
		correlations: correlations,
	}
	for i := range r.entries {
		e := &r.entries[i]
		for _, a := range e.Aliases {
			r.byName[strings.ToUpper(a)] = e
		}
	}
	// Standard names win over aliases of other entries.
	for i := range r.entries {
		r.byName[r.entries[i].Standard] = &r.entries[i]
	}
	return r
}

// Lookup resolves a standard mnemonic or alias, case-insensitively.
func (r *Registry) Lookup(mnemonic string) (MnemonicEntry, bool) {
	e, ok := r.byName[strings.ToUpper(strings.TrimSpace(mnemonic))]
	if !ok {
		return MnemonicEntry{}, false
	}
	return *e, true
}

// Range returns the physical range for a mnemonic, resolving aliases.
func (r *Registry) Range(mnemonic string) (Range, bool) {
	m := strings.ToUpper(strings.TrimSpace(mnemonic))
	if rg, ok := r.ranges[m]; ok {
		return rg, true
	}
	if e, ok := r.byName[m]; ok {
		rg, ok := r.ranges[e.Standard]
		return rg, ok
	}
	return Range{}, false
}

// Conversion returns the conversion for a standard mnemonic recorded in unit.
func (r *Registry) Conversion(mnemonic, unit string) (UnitConversion, bool) {
	m, u := strings.ToUpper(mnemonic), strings.ToUpper(strings.TrimSpace(unit))
	for _, c := range r.conversions {
		if c.Mnemonic == m && c.From == u {
			return c, true
		}
	}
	return UnitConversion{}, false
}

// Correlations returns the expected cross-curve correlations.
func (r *Registry) Correlations() []Correlation {
	return append([]Correlation(nil), r.correlations...)
}

// Entries returns the mnemonic dictionary.
func (r *Registry) Entries() []MnemonicEntry {
	return append([]MnemonicEntry(nil), r.entries...)
}

func samePair(a, b Correlation) bool {
	return (a.A == b.A && a.B == b.B) || (a.A == b.B && a.B == b.A)
}
