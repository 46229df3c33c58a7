package memory

import (
	"fmt"
	"maps"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// variant is one origin of a node aggregate.
type variant struct {
	origin     cg.DimensionSpacePoint
	properties map[string]any
	// references by name, in the order the names were first set
	references map[string][]cg.NodeAggregateID
	refNames   []string
}

type aggregate struct {
	id       cg.NodeAggregateID
	typeName cg.NodeTypeName
	name     cg.NodeName
	root     bool
	parent   cg.NodeAggregateID
	children []cg.NodeAggregateID
	variants map[string]*variant // by origin hash
}

type contentStream struct {
	aggregates map[cg.NodeAggregateID]*aggregate
	order      []cg.NodeAggregateID // creation order
}

// graph is the projected state of all content streams.
type graph struct {
	variation  *cg.VariationGraph
	workspaces map[cg.WorkspaceName]cg.Workspace
	streams    map[cg.ContentStreamID]*contentStream
}

func newGraph(variation *cg.VariationGraph) *graph {
	return &graph{
		variation:  variation,
		workspaces: make(map[cg.WorkspaceName]cg.Workspace),
		streams:    make(map[cg.ContentStreamID]*contentStream),
	}
}

// covering returns the variant of a that is visible in dsp. Roots cover every
// point with their single variant.
func (g *graph) covering(a *aggregate, dsp cg.DimensionSpacePoint) *variant {
	if a.root {
		for _, v := range a.variants {
			return v
		}
		return nil
	}
	for _, p := range g.variation.Generalizations(dsp) {
		if v, ok := a.variants[p.Hash()]; ok {
			return v
		}
	}
	return nil
}

// visible returns the covering variant if a and all its ancestors are visible in dsp.
func (g *graph) visible(cs *contentStream, a *aggregate, dsp cg.DimensionSpacePoint) *variant {
	v := g.covering(a, dsp)
	if v == nil {
		return nil
	}
	for p := a.parent; p != ""; {
		pa, ok := cs.aggregates[p]
		if !ok || g.covering(pa, dsp) == nil {
			return nil
		}
		p = pa.parent
	}
	return v
}

func (g *graph) apply(e event) error {
	switch e := e.(type) {
	case *WorkspaceWasCreated:
		g.workspaces[e.WorkspaceName] = cg.Workspace{Name: e.WorkspaceName, CurrentContentStreamID: e.ContentStreamID}
		if _, ok := g.streams[e.ContentStreamID]; !ok {
			g.streams[e.ContentStreamID] = &contentStream{aggregates: make(map[cg.NodeAggregateID]*aggregate)}
		}

	case *RootNodeAggregateWithNodeCreated:
		cs, err := g.stream(e.ContentStreamID)
		if err != nil {
			return err
		}
		origin := cg.DimensionSpacePoint{}
		cs.add(&aggregate{
			id:       e.NodeAggregateID,
			typeName: e.NodeTypeName,
			root:     true,
			variants: map[string]*variant{origin.Hash(): newVariant(origin, nil)},
		})

	case *NodeAggregateWithNodeCreated:
		cs, err := g.stream(e.ContentStreamID)
		if err != nil {
			return err
		}
		parent, ok := cs.aggregates[e.ParentNodeAggregateID]
		if !ok {
			return fmt.Errorf("%w: parent %s", cg.ErrNodeAggregateNotFound, e.ParentNodeAggregateID)
		}
		cs.add(&aggregate{
			id:       e.NodeAggregateID,
			typeName: e.NodeTypeName,
			name:     e.NodeName,
			parent:   parent.id,
			variants: map[string]*variant{e.Origin.Hash(): newVariant(e.Origin, e.Properties)},
		})
		parent.children = append(parent.children, e.NodeAggregateID)

	case *NodePropertiesWereSet:
		v, err := g.variant(e.ContentStreamID, e.NodeAggregateID, e.Origin)
		if err != nil {
			return err
		}
		maps.Copy(v.properties, e.Properties)

	case *NodeAggregateNameWasChanged:
		a, err := g.aggregate(e.ContentStreamID, e.NodeAggregateID)
		if err != nil {
			return err
		}
		a.name = e.NewNodeName

	case *NodeVariantWasCreated:
		source, err := g.variant(e.ContentStreamID, e.NodeAggregateID, e.SourceOrigin)
		if err != nil {
			return err
		}
		a, _ := g.aggregate(e.ContentStreamID, e.NodeAggregateID)
		target := newVariant(e.TargetOrigin, source.properties)
		for _, name := range source.refNames {
			target.setReferences(name, source.references[name])
		}
		a.variants[e.TargetOrigin.Hash()] = target

	case *NodeAggregateWasRemoved:
		cs, err := g.stream(e.ContentStreamID)
		if err != nil {
			return err
		}
		for _, r := range e.Removed {
			a, ok := cs.aggregates[r.NodeAggregateID]
			if !ok {
				continue
			}
			delete(a.variants, r.Origin.Hash())
			if len(a.variants) == 0 {
				cs.remove(a)
			}
		}

	case *NodeReferencesWereSet:
		v, err := g.variant(e.ContentStreamID, e.SourceNodeAggregateID, e.SourceOrigin)
		if err != nil {
			return err
		}
		v.setReferences(e.ReferenceName, e.Targets)

	default:
		return fmt.Errorf("cannot apply %T", e)
	}
	return nil
}

func (g *graph) stream(id cg.ContentStreamID) (*contentStream, error) {
	cs, ok := g.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cg.ErrContentStreamNotFound, id)
	}
	return cs, nil
}

func (g *graph) aggregate(csID cg.ContentStreamID, id cg.NodeAggregateID) (*aggregate, error) {
	cs, err := g.stream(csID)
	if err != nil {
		return nil, err
	}
	a, ok := cs.aggregates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cg.ErrNodeAggregateNotFound, id)
	}
	return a, nil
}

func (g *graph) variant(csID cg.ContentStreamID, id cg.NodeAggregateID, origin cg.DimensionSpacePoint) (*variant, error) {
	a, err := g.aggregate(csID, id)
	if err != nil {
		return nil, err
	}
	v, ok := a.variants[origin.Hash()]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantNotFound, id, origin)
	}
	return v, nil
}

func (cs *contentStream) add(a *aggregate) {
	cs.aggregates[a.id] = a
	cs.order = append(cs.order, a.id)
}

func (cs *contentStream) remove(a *aggregate) {
	delete(cs.aggregates, a.id)
	cs.order = without(cs.order, a.id)
	if parent, ok := cs.aggregates[a.parent]; ok {
		parent.children = without(parent.children, a.id)
	}
}

func without(ids []cg.NodeAggregateID, id cg.NodeAggregateID) []cg.NodeAggregateID {
	out := ids[:0]
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

func newVariant(origin cg.DimensionSpacePoint, properties map[string]any) *variant {
	props := make(map[string]any, len(properties))
	maps.Copy(props, properties)
	return &variant{
		origin:     origin.Clone(),
		properties: props,
		references: make(map[string][]cg.NodeAggregateID),
	}
}

func (v *variant) setReferences(name string, targets []cg.NodeAggregateID) {
	if _, ok := v.references[name]; !ok {
		v.refNames = append(v.refNames, name)
	}
	v.references[name] = append([]cg.NodeAggregateID(nil), targets...)
}
