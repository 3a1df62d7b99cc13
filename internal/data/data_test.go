package data

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRegionTable(t *testing.T) {
	table, err := ParseRegionTable([]byte(`
regions:
  - id: 14
    name: Dunbarton
    width: 40000
    height: 40000
  - id: 1
    name: Tir Chonaill
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d", table.Count())
	}
	all := table.All()
	if all[0].ID != 1 || all[1].ID != 14 {
		t.Errorf("All not sorted by id: %d, %d", all[0].ID, all[1].ID)
	}
	if r := table.Get(14); r == nil || r.Name != "Dunbarton" || r.Width != 40000 {
		t.Errorf("Get(14) = %+v", r)
	}
	if table.Get(99) != nil {
		t.Error("Get(99) should be nil")
	}
}

func TestParseRegionTableDuplicate(t *testing.T) {
	_, err := ParseRegionTable([]byte("regions:\n  - id: 1\n  - id: 1\n"))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadRegionTableMissing(t *testing.T) {
	if _, err := LoadRegionTable(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

const propDropsYAML = `
prop_drops:
  - type: 1
    items:
      - {item_id: 50001, amount: 1, chance: 30}
      - {item_id: 50002, amount: 0, chance: 70}
  - type: 1
    items:
      - {item_id: 50003, amount: 5, chance: 0}
  - type: 2
    items:
      - {item_id: 60001, amount: 1, chance: 0}
`

func TestParsePropDropTable(t *testing.T) {
	table, err := ParsePropDropTable([]byte(propDropsYAML))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count = %d, want 2", table.Count())
	}
	d := table.Get(1)
	if len(d.Items) != 3 {
		t.Fatalf("type 1 has %d items, want 3 (merged)", len(d.Items))
	}
	if d.Items[1].Amount != 1 {
		t.Errorf("amount 0 not raised to 1: %d", d.Items[1].Amount)
	}
}

func TestGetRndItemWeights(t *testing.T) {
	table, err := ParsePropDropTable([]byte(propDropsYAML))
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	counts := map[int32]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		it := table.Get(1).GetRndItem(rng)
		if it == nil {
			t.Fatal("nil item from weighted list")
		}
		counts[it.ItemID]++
	}
	if counts[50003] != 0 {
		t.Errorf("zero-weight item picked %d times", counts[50003])
	}
	// 30/70 split within a loose tolerance
	if c := counts[50001]; c < 2500 || c > 3500 {
		t.Errorf("item 50001 picked %d/%d times, want ~3000", c, n)
	}

	if it := table.Get(2).GetRndItem(rng); it != nil {
		t.Errorf("weightless list returned %+v", it)
	}
}

func TestLoadPropDropTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prop_drops.yaml")
	if err := os.WriteFile(path, []byte(propDropsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadPropDropTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Get(1) == nil {
		t.Fatal("type 1 missing")
	}
}
