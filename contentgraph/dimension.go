package contentgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// DimensionSpacePoint assigns one value to every content dimension, e.g.
// {"language": "de"}. Treat it as immutable.
type DimensionSpacePoint map[string]string

// Hash returns a stable identity for the point, independent of map order.
func (p DimensionSpacePoint) Hash() string {
	sum := sha256.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether both points assign the same values.
func (p DimensionSpacePoint) Equal(other DimensionSpacePoint) bool {
	return p.String() == other.String()
}

// String renders the point as canonical JSON with sorted keys. It is the
// identity Hash and Equal compare.
func (p DimensionSpacePoint) String() string {
	if len(p) == 0 {
		return "{}"
	}
	data, err := json.Marshal(map[string]string(p))
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Clone returns an independent copy.
func (p DimensionSpacePoint) Clone() DimensionSpacePoint {
	out := make(DimensionSpacePoint, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ParseDimensionSpacePoint decodes the JSON form produced by String.
func ParseDimensionSpacePoint(s string) (DimensionSpacePoint, error) {
	p := DimensionSpacePoint{}
	if s == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("parse dimension space point %q: %w", s, err)
	}
	return p, nil
}

// ContentDimension is a named dimension with a tree of values. A value's
// specializations fall back to it.
type ContentDimension struct {
	Name   string
	Values []DimensionValue
}

// DimensionValue is one value of a content dimension.
type DimensionValue struct {
	Value           string
	Specializations []DimensionValue
}

type dimensionIndex struct {
	name   string
	parent map[string]string
	depth  map[string]int
	values []string // declaration order, pre-order
	roots  []string
}

// VariationGraph answers generalization/specialization questions over the
// configured content dimensions.
type VariationGraph struct {
	dimensions []*dimensionIndex
	allowed    []DimensionSpacePoint
}

// NewVariationGraph validates the dimension configuration and indexes it.
// Zero dimensions yield a graph with the single empty point.
func NewVariationGraph(dimensions []ContentDimension) (*VariationGraph, error) {
	g := &VariationGraph{}
	seen := map[string]bool{}

	for _, d := range dimensions {
		if d.Name == "" {
			return nil, fmt.Errorf("content dimension without name")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("content dimension %q declared twice", d.Name)
		}
		seen[d.Name] = true
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("content dimension %q has no values", d.Name)
		}

		idx := &dimensionIndex{
			name:   d.Name,
			parent: map[string]string{},
			depth:  map[string]int{},
		}
		for _, v := range d.Values {
			if err := idx.add(v, "", 0); err != nil {
				return nil, err
			}
			idx.roots = append(idx.roots, v.Value)
		}
		g.dimensions = append(g.dimensions, idx)
	}

	g.allowed = g.product(func(idx *dimensionIndex) []string { return idx.values })
	return g, nil
}

func (idx *dimensionIndex) add(v DimensionValue, parent string, depth int) error {
	if v.Value == "" {
		return fmt.Errorf("content dimension %q has an empty value", idx.name)
	}
	if _, exists := idx.depth[v.Value]; exists {
		return fmt.Errorf("content dimension %q declares value %q twice", idx.name, v.Value)
	}
	idx.depth[v.Value] = depth
	if parent != "" {
		idx.parent[v.Value] = parent
	}
	idx.values = append(idx.values, v.Value)
	for _, s := range v.Specializations {
		if err := idx.add(s, v.Value, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// chain returns value and its ancestors, most specific first.
func (idx *dimensionIndex) chain(value string) []string {
	out := []string{value}
	for {
		parent, ok := idx.parent[value]
		if !ok {
			return out
		}
		out = append(out, parent)
		value = parent
	}
}

func (g *VariationGraph) product(values func(*dimensionIndex) []string) []DimensionSpacePoint {
	points := []DimensionSpacePoint{{}}
	for _, idx := range g.dimensions {
		var next []DimensionSpacePoint
		for _, p := range points {
			for _, v := range values(idx) {
				q := p.Clone()
				q[idx.name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// AllowedPoints returns every dimension space point of the cartesian product.
func (g *VariationGraph) AllowedPoints() []DimensionSpacePoint {
	out := make([]DimensionSpacePoint, len(g.allowed))
	copy(out, g.allowed)
	return out
}

// IsAllowed reports whether p assigns a declared value to exactly the declared dimensions.
func (g *VariationGraph) IsAllowed(p DimensionSpacePoint) bool {
	if len(p) != len(g.dimensions) {
		return false
	}
	for _, idx := range g.dimensions {
		v, ok := p[idx.name]
		if !ok {
			return false
		}
		if _, ok := idx.depth[v]; !ok {
			return false
		}
	}
	return true
}

// RootGeneralizations returns the points without any generalization.
func (g *VariationGraph) RootGeneralizations() []DimensionSpacePoint {
	return g.product(func(idx *dimensionIndex) []string { return idx.roots })
}

// Generalizations returns p and every point p falls back to, most specific
// first. Ties are broken by the per-dimension distance in dimension order.
func (g *VariationGraph) Generalizations(p DimensionSpacePoint) []DimensionSpacePoint {
	if !g.IsAllowed(p) {
		return nil
	}

	type candidate struct {
		point     DimensionSpacePoint
		distances []int
		total     int
	}
	candidates := []candidate{{point: DimensionSpacePoint{}}}
	for _, idx := range g.dimensions {
		var next []candidate
		for _, c := range candidates {
			for dist, v := range idx.chain(p[idx.name]) {
				q := c.point.Clone()
				q[idx.name] = v
				distances := append(append([]int(nil), c.distances...), dist)
				next = append(next, candidate{point: q, distances: distances, total: c.total + dist})
			}
		}
		candidates = next
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].total != candidates[j].total {
			return candidates[i].total < candidates[j].total
		}
		for k := range candidates[i].distances {
			if candidates[i].distances[k] != candidates[j].distances[k] {
				return candidates[i].distances[k] < candidates[j].distances[k]
			}
		}
		return false
	})

	out := make([]DimensionSpacePoint, len(candidates))
	for i, c := range candidates {
		out[i] = c.point
	}
	return out
}

// IsGeneralizationOf reports whether general equals p or p falls back to it.
func (g *VariationGraph) IsGeneralizationOf(general, p DimensionSpacePoint) bool {
	if !g.IsAllowed(general) || !g.IsAllowed(p) {
		return false
	}
	for _, idx := range g.dimensions {
		found := false
		for _, v := range idx.chain(p[idx.name]) {
			if v == general[idx.name] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Specializations returns p and every allowed point falling back to p.
func (g *VariationGraph) Specializations(p DimensionSpacePoint) []DimensionSpacePoint {
	var out []DimensionSpacePoint
	for _, q := range g.allowed {
		if g.IsGeneralizationOf(p, q) {
			out = append(out, q)
		}
	}
	return out
}
