package memory

import (
	"context"
	"maps"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

type subgraph struct {
	repo     *Repository
	identity cg.SubgraphIdentity
}

var _ cg.Subgraph = (*subgraph)(nil)

func (s *subgraph) Identity() cg.SubgraphIdentity { return s.identity }

// view runs fn with the content stream under the read lock. A missing stream
// reads as empty.
func (s *subgraph) view(ctx context.Context, fn func(cs *contentStream)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.repo.mu.RLock()
	defer s.repo.mu.RUnlock()
	cs, ok := s.repo.graph.streams[s.identity.ContentStreamID]
	if !ok {
		return nil
	}
	fn(cs)
	return nil
}

// node returns the node for id if it is visible in this subgraph.
func (s *subgraph) node(cs *contentStream, id cg.NodeAggregateID) *cg.Node {
	a, ok := cs.aggregates[id]
	if !ok {
		return nil
	}
	v := s.repo.graph.visible(cs, a, s.identity.DimensionSpacePoint)
	if v == nil {
		return nil
	}
	return s.toNode(a, v)
}

func (s *subgraph) toNode(a *aggregate, v *variant) *cg.Node {
	props := make(map[string]any, len(v.properties))
	maps.Copy(props, v.properties)
	return &cg.Node{
		AggregateID:               a.id,
		TypeName:                  a.typeName,
		Name:                      a.name,
		Properties:                props,
		Subgraph:                  s.identity,
		OriginDimensionSpacePoint: v.origin.Clone(),
	}
}

func (s *subgraph) matches(criteria cg.NodeTypeCriteria, name cg.NodeTypeName) bool {
	return criteria.Matches(s.repo.nodeTypes, name)
}

func (s *subgraph) FindNodeByID(ctx context.Context, id cg.NodeAggregateID) (*cg.Node, error) {
	var out *cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		out = s.node(cs, id)
	})
	return out, err
}

func (s *subgraph) FindRootNodeByType(ctx context.Context, typeName cg.NodeTypeName) (*cg.Node, error) {
	var out *cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		for _, id := range cs.order {
			if a := cs.aggregates[id]; a.root && s.repo.nodeTypes.IsOfType(a.typeName, typeName) {
				out = s.node(cs, id)
				return
			}
		}
	})
	return out, err
}

func (s *subgraph) FindParentNode(ctx context.Context, id cg.NodeAggregateID) (*cg.Node, error) {
	var out *cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		a, ok := cs.aggregates[id]
		if !ok || s.node(cs, id) == nil || a.parent == "" {
			return
		}
		out = s.node(cs, a.parent)
	})
	return out, err
}

func (s *subgraph) FindChildNodes(ctx context.Context, parentID cg.NodeAggregateID, filter cg.FindChildNodesFilter) ([]*cg.Node, error) {
	var out []*cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		out = s.children(cs, parentID, filter.NodeTypes)
	})
	return out, err
}

func (s *subgraph) children(cs *contentStream, parentID cg.NodeAggregateID, criteria cg.NodeTypeCriteria) []*cg.Node {
	parent, ok := cs.aggregates[parentID]
	if !ok || s.node(cs, parentID) == nil {
		return nil
	}
	var out []*cg.Node
	for _, childID := range parent.children {
		child := cs.aggregates[childID]
		if child == nil || !s.matches(criteria, child.typeName) {
			continue
		}
		if v := s.repo.graph.covering(child, s.identity.DimensionSpacePoint); v != nil {
			out = append(out, s.toNode(child, v))
		}
	}
	return out
}

func (s *subgraph) FindAncestorNodes(ctx context.Context, id cg.NodeAggregateID, filter cg.FindAncestorNodesFilter) ([]*cg.Node, error) {
	var out []*cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		a, ok := cs.aggregates[id]
		if !ok || s.node(cs, id) == nil {
			return
		}
		for p := a.parent; p != ""; {
			pa := cs.aggregates[p]
			if s.matches(filter.NodeTypes, pa.typeName) {
				out = append(out, s.toNode(pa, s.repo.graph.covering(pa, s.identity.DimensionSpacePoint)))
			}
			p = pa.parent
		}
	})
	return out, err
}

func (s *subgraph) FindSubtree(ctx context.Context, id cg.NodeAggregateID, filter cg.FindSubtreeFilter) (*cg.Subtree, error) {
	var out *cg.Subtree
	err := s.view(ctx, func(cs *contentStream) {
		n := s.node(cs, id)
		if n == nil {
			return
		}
		out = s.subtree(cs, n, 0, filter)
	})
	return out, err
}

func (s *subgraph) subtree(cs *contentStream, n *cg.Node, level int, filter cg.FindSubtreeFilter) *cg.Subtree {
	st := &cg.Subtree{Level: level, Node: n, Children: []*cg.Subtree{}}
	if filter.MaxLevels > 0 && level >= filter.MaxLevels {
		return st
	}
	for _, child := range s.children(cs, n.AggregateID, filter.NodeTypes) {
		st.Children = append(st.Children, s.subtree(cs, child, level+1, filter))
	}
	return st
}

func (s *subgraph) FindReferences(ctx context.Context, id cg.NodeAggregateID, filter cg.FindReferencesFilter) ([]cg.Reference, error) {
	var out []cg.Reference
	err := s.view(ctx, func(cs *contentStream) {
		a, ok := cs.aggregates[id]
		if !ok {
			return
		}
		v := s.repo.graph.visible(cs, a, s.identity.DimensionSpacePoint)
		if v == nil {
			return
		}
		for _, name := range v.refNames {
			if filter.ReferenceName != "" && filter.ReferenceName != name {
				continue
			}
			for _, targetID := range v.references[name] {
				target := s.node(cs, targetID)
				if target == nil || !s.matches(filter.NodeTypes, target.TypeName) {
					continue
				}
				out = append(out, cg.Reference{Node: target, Name: name})
			}
		}
	})
	return out, err
}

func (s *subgraph) FindBackReferences(ctx context.Context, id cg.NodeAggregateID, filter cg.FindBackReferencesFilter) ([]cg.Reference, error) {
	var out []cg.Reference
	err := s.view(ctx, func(cs *contentStream) {
		if s.node(cs, id) == nil {
			return
		}
		for _, sourceID := range cs.order {
			source := cs.aggregates[sourceID]
			if !s.matches(filter.NodeTypes, source.typeName) {
				continue
			}
			v := s.repo.graph.visible(cs, source, s.identity.DimensionSpacePoint)
			if v == nil {
				continue
			}
			for _, name := range v.refNames {
				if filter.ReferenceName != "" && filter.ReferenceName != name {
					continue
				}
				for _, targetID := range v.references[name] {
					if targetID == id {
						out = append(out, cg.Reference{Node: s.toNode(source, v), Name: name})
					}
				}
			}
		}
	})
	return out, err
}

func (s *subgraph) FindNodeByPath(ctx context.Context, path cg.NodePath, startID cg.NodeAggregateID) (*cg.Node, error) {
	var out *cg.Node
	err := s.view(ctx, func(cs *contentStream) {
		current := s.node(cs, startID)
		for _, segment := range path {
			if current == nil {
				return
			}
			var next *cg.Node
			for _, child := range s.children(cs, current.AggregateID, cg.NodeTypeCriteria{}) {
				if child.Name == segment {
					next = child
					break
				}
			}
			current = next
		}
		out = current
	})
	return out, err
}
