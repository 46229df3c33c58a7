package taxonomy

import (
	"context"
	"fmt"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// FindEnclosingVocabulary returns node itself if it is a vocabulary, otherwise
// its nearest vocabulary ancestor. Reaching the graph root without one fails
// with ErrNodeOutsideVocabulary.
func (s *Service) FindEnclosingVocabulary(ctx context.Context, node *cg.Node) (*cg.Node, error) {
	sg := s.repo.SubgraphForNode(node)
	for current := node; current != nil; {
		if s.types.IsVocabulary(current) {
			return current, nil
		}
		parent, err := sg.FindParentNode(ctx, current.AggregateID)
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeOutsideVocabulary, node.AggregateID)
}

// FindTaxonomyAncestors returns the taxonomy ancestors of node, nearest first.
// The walk stops at the first ancestor that is not a taxonomy, so the
// vocabulary and the root are never included.
func (s *Service) FindTaxonomyAncestors(ctx context.Context, node *cg.Node) ([]*cg.Node, error) {
	sg := s.repo.SubgraphForNode(node)
	var out []*cg.Node
	current := node
	for {
		parent, err := sg.FindParentNode(ctx, current.AggregateID)
		if err != nil {
			return nil, err
		}
		if !s.types.IsTaxonomy(parent) {
			return out, nil
		}
		out = append(out, parent)
		current = parent
	}
}
