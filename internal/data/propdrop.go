package data

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// PropDropItem is one possible drop of a prop drop type.
type PropDropItem struct {
	ItemID int32   `yaml:"item_id"`
	Amount int32   `yaml:"amount"`
	Chance float64 `yaml:"chance"` // relative weight within the drop type
}

// PropDrop is the drop list of one drop type.
type PropDrop struct {
	Type  int32          `yaml:"type"`
	Items []PropDropItem `yaml:"items"`
}

// GetRndItem picks an item with probability proportional to its chance.
// It returns nil when the list carries no weight.
func (d *PropDrop) GetRndItem(rng *rand.Rand) *PropDropItem {
	var total float64
	for _, it := range d.Items {
		if it.Chance > 0 {
			total += it.Chance
		}
	}
	if total <= 0 {
		return nil
	}

	r := rng.Float64() * total
	for i := range d.Items {
		if d.Items[i].Chance <= 0 {
			continue
		}
		r -= d.Items[i].Chance
		if r < 0 {
			return &d.Items[i]
		}
	}
	// rounding left r at zero; fall back to the last weighted item
	for i := len(d.Items) - 1; i >= 0; i-- {
		if d.Items[i].Chance > 0 {
			return &d.Items[i]
		}
	}
	return nil
}

type propDropFile struct {
	Drops []PropDrop `yaml:"prop_drops"`
}

// PropDropTable holds prop drop lists indexed by drop type.
type PropDropTable struct {
	drops map[int32]*PropDrop
}

func (t *PropDropTable) Get(dropType int32) *PropDrop {
	return t.drops[dropType]
}

func (t *PropDropTable) Count() int {
	return len(t.drops)
}

// LoadPropDropTable loads prop drop lists from a YAML file.
func LoadPropDropTable(path string) (*PropDropTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prop drops %s: %w", path, err)
	}
	return ParsePropDropTable(raw)
}

// ParsePropDropTable decodes prop drop lists. Entries of the same type are
// merged; amounts below one are raised to one.
func ParsePropDropTable(raw []byte) (*PropDropTable, error) {
	var f propDropFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prop drops: %w", err)
	}
	t := &PropDropTable{drops: make(map[int32]*PropDrop, len(f.Drops))}
	for _, d := range f.Drops {
		entry := t.drops[d.Type]
		if entry == nil {
			entry = &PropDrop{Type: d.Type}
			t.drops[d.Type] = entry
		}
		for _, it := range d.Items {
			if it.Amount < 1 {
				it.Amount = 1
			}
			entry.Items = append(entry.Items, it)
		}
	}
	return t, nil
}
