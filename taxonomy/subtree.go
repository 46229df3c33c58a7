package taxonomy

import (
	"context"
	"sort"
	"time"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// ResolveSubtree returns node with all vocabulary and taxonomy descendants,
// children ordered by name at every level. Traversal stops at nodes of other
// types. Returns nil if node is no longer visible.
func (s *Service) ResolveSubtree(ctx context.Context, node *cg.Node) (*cg.Subtree, error) {
	start := time.Now()
	sg := s.repo.SubgraphForNode(node)
	st, err := sg.FindSubtree(ctx, node.AggregateID, cg.FindSubtreeFilter{
		NodeTypes: s.types.VocabularyOrTaxonomy(),
	})
	if err != nil || st == nil {
		return nil, err
	}
	sorted := SortSubtree(st)
	s.metrics.subtreeResolved(start, len(FlattenSubtree(sorted)))
	return sorted, nil
}

// SortSubtree returns a copy of st whose children are ordered by SortKey,
// ascending and byte-wise, at every level. Children are sorted before their
// parents' sibling lists.
func SortSubtree(st *cg.Subtree) *cg.Subtree {
	if st == nil {
		return nil
	}
	children := make([]*cg.Subtree, len(st.Children))
	for i, child := range st.Children {
		children[i] = SortSubtree(child)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return SortKey(children[i].Node) < SortKey(children[j].Node)
	})
	return &cg.Subtree{Level: st.Level, Node: st.Node, Children: children}
}

// SortKey is the node name, or the aggregate id for unnamed nodes.
func SortKey(n *cg.Node) string {
	if n.Name != "" {
		return n.Name.String()
	}
	return n.AggregateID.String()
}

// FlattenSubtree lists the nodes of st in pre-order, st's own node first.
func FlattenSubtree(st *cg.Subtree) []*cg.Node {
	if st == nil {
		return nil
	}
	out := []*cg.Node{st.Node}
	for _, child := range st.Children {
		out = append(out, FlattenSubtree(child)...)
	}
	return out
}
