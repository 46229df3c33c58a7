package taxonomy

import (
	"context"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// SubTaxonomies returns all taxonomies below the given taxonomy nodes. Inputs
// that are not taxonomies are skipped.
func (s *Service) SubTaxonomies(ctx context.Context, nodes []*cg.Node) ([]*cg.Node, error) {
	set := newNodeSet(NodeHash)
	for _, node := range nodes {
		if !s.types.IsTaxonomy(node) {
			continue
		}
		st, err := s.repo.SubgraphForNode(node).FindSubtree(ctx, node.AggregateID, cg.FindSubtreeFilter{
			NodeTypes: s.types.Criteria(s.types.TaxonomyTypeName()),
		})
		if err != nil {
			return nil, err
		}
		set.add(descendants(SortSubtree(st))...)
	}
	return set.nodes, nil
}

// TaxonomyDescendants returns the ordered vocabulary/taxonomy subtree of each
// input, excluding the inputs themselves.
func (s *Service) TaxonomyDescendants(ctx context.Context, nodes []*cg.Node) ([]*cg.Node, error) {
	set := newNodeSet(NodeHash)
	for _, node := range nodes {
		st, err := s.ResolveSubtree(ctx, node)
		if err != nil {
			return nil, err
		}
		set.add(descendants(st)...)
	}
	return set.nodes, nil
}

// TaxonomyAncestors merges FindTaxonomyAncestors over all inputs.
func (s *Service) TaxonomyAncestors(ctx context.Context, nodes []*cg.Node) ([]*cg.Node, error) {
	set := newNodeSet(NodeHash)
	for _, node := range nodes {
		ancestors, err := s.FindTaxonomyAncestors(ctx, node)
		if err != nil {
			return nil, err
		}
		set.add(ancestors...)
	}
	return set.nodes, nil
}

// TaxonomyVocabularies returns the enclosing vocabulary of every input.
func (s *Service) TaxonomyVocabularies(ctx context.Context, nodes []*cg.Node) ([]*cg.Node, error) {
	set := newNodeSet(NodeHash)
	for _, node := range nodes {
		vocabulary, err := s.FindEnclosingVocabulary(ctx, node)
		if err != nil {
			return nil, err
		}
		set.add(vocabulary)
	}
	return set.nodes, nil
}

func descendants(st *cg.Subtree) []*cg.Node {
	all := FlattenSubtree(st)
	if len(all) == 0 {
		return nil
	}
	return all[1:]
}
