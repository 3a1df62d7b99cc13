package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RegionInfo describes one region, loaded from regions.yaml.
type RegionInfo struct {
	ID     int32  `yaml:"id"`
	Name   string `yaml:"name"`
	Width  int32  `yaml:"width"`
	Height int32  `yaml:"height"`
}

type regionListFile struct {
	Regions []RegionInfo `yaml:"regions"`
}

// RegionTable provides region definitions by id.
type RegionTable struct {
	regions map[int32]*RegionInfo
}

func (t *RegionTable) Get(id int32) *RegionInfo {
	return t.regions[id]
}

func (t *RegionTable) Count() int {
	return len(t.regions)
}

// All returns every region ordered by id.
func (t *RegionTable) All() []*RegionInfo {
	out := make([]*RegionInfo, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadRegionTable loads region definitions from a YAML file.
func LoadRegionTable(path string) (*RegionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region list %s: %w", path, err)
	}
	return ParseRegionTable(raw)
}

func ParseRegionTable(raw []byte) (*RegionTable, error) {
	var f regionListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse region list: %w", err)
	}
	t := &RegionTable{regions: make(map[int32]*RegionInfo, len(f.Regions))}
	for i := range f.Regions {
		r := &f.Regions[i]
		if _, dup := t.regions[r.ID]; dup {
			return nil, fmt.Errorf("region list: duplicate region id %d", r.ID)
		}
		t.regions[r.ID] = r
	}
	return t, nil
}
