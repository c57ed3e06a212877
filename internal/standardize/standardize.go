// Package standardize renames curves to standard mnemonics and normalizes
// their units and display defaults.
package standardize

import (
	"fmt"
	"strings"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/registry"
)

// Result describes what a standardization pass changed.
type Result struct {
	// Renamed maps original mnemonics to their standard names.
	Renamed    map[string]string `json:"renamed"`
	Converted  []string          `json:"converted,omitempty"`
	Recognized int               `json:"recognized"`
	Coverage   float64           `json:"coverage"`
	Affected   []string          `json:"affected"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Apply standardizes ds in place. A curve whose mnemonic is a known alias is
// renamed unless another curve already uses the standard name, in which case
// it is kept as-is and a warning is recorded. Recognized curves receive the
// dictionary's display defaults and, where a conversion is registered for
// their unit, have their values rescaled.
func Apply(ds *model.Dataset, reg *registry.Registry) Result {
	res := Result{Renamed: make(map[string]string)}
	taken := make(map[string]bool, len(ds.Curves))
	for _, c := range ds.Curves {
		taken[c.Mnemonic] = true
	}

	for i := range ds.Curves {
		c := &ds.Curves[i]
		entry, ok := reg.Lookup(c.Mnemonic)
		if !ok {
			if c.Category == "" {
				c.Category = model.CategoryCustom
			}
			if c.Scale == "" {
				c.Scale = model.ScaleLinear
			}
			continue
		}
		res.Recognized++
		changed := false

		if c.Mnemonic != entry.Standard {
			if taken[entry.Standard] {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"curve %s maps to %s which already exists; keeping original mnemonic", c.Mnemonic, entry.Standard))
			} else {
				res.Renamed[c.Mnemonic] = entry.Standard
				delete(taken, c.Mnemonic)
				taken[entry.Standard] = true
				c.Mnemonic = entry.Standard
				changed = true
			}
		}

		if conv, ok := reg.Conversion(entry.Standard, c.Unit); ok {
			for j, v := range c.Values {
				if !model.IsNull(v) {
					c.Values[j] = conv.Apply(v)
				}
			}
			res.Converted = append(res.Converted, fmt.Sprintf("%s: %s -> %s", c.Mnemonic, c.Unit, conv.To))
			c.Unit = conv.To
			changed = true
		}
		if strings.TrimSpace(c.Unit) == "" {
			c.Unit = entry.Unit
			changed = true
		}

		c.Category = entry.Category
		c.Track = entry.Track
		c.Color = entry.Color
		c.Scale = entry.Scale
		if c.Description == "" {
			c.Description = entry.Description
		}
		if changed {
			res.Affected = append(res.Affected, c.Mnemonic)
		}
	}

	res.Coverage = percent(res.Recognized, len(ds.Curves))
	return res
}

// Coverage returns the percent of curves whose mnemonic the registry
// recognizes, without modifying ds.
func Coverage(ds *model.Dataset, reg *registry.Registry) float64 {
	n := 0
	for _, c := range ds.Curves {
		if _, ok := reg.Lookup(c.Mnemonic); ok {
			n++
		}
	}
	return percent(n, len(ds.Curves))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
