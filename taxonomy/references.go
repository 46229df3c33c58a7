package taxonomy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// NodeHash identifies a node as read from one subgraph: two dimension
// variants of the same aggregate hash differently.
func NodeHash(n *cg.Node) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		n.AggregateID.String(),
		n.Subgraph.ContentRepositoryID.String(),
		n.Subgraph.ContentStreamID.String(),
		n.Subgraph.DimensionSpacePoint.Hash(),
	}, ":")))
	return hex.EncodeToString(sum[:])
}

// nodeSet keeps the first node per key in insertion order.
type nodeSet struct {
	key   func(*cg.Node) string
	seen  map[string]bool
	nodes []*cg.Node
}

func newNodeSet(key func(*cg.Node) string) *nodeSet {
	return &nodeSet{key: key, seen: make(map[string]bool)}
}

func (s *nodeSet) add(nodes ...*cg.Node) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		k := s.key(n)
		if s.seen[k] {
			continue
		}
		s.seen[k] = true
		s.nodes = append(s.nodes, n)
	}
}

func logicalKey(n *cg.Node) string { return n.AggregateID.String() }

// FindReferencedTaxonomies returns the taxonomies the given nodes point at
// through the configured reference, without duplicates.
func (s *Service) FindReferencedTaxonomies(ctx context.Context, nodes ...*cg.Node) ([]*cg.Node, error) {
	set := newNodeSet(NodeHash)
	for _, node := range nodes {
		refs, err := s.repo.SubgraphForNode(node).FindReferences(ctx, node.AggregateID, cg.FindReferencesFilter{
			NodeTypes:     s.types.Criteria(s.types.TaxonomyTypeName()),
			ReferenceName: s.referenceName,
		})
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			set.add(ref.Node)
		}
	}
	return set.nodes, nil
}

// ReferencingFilter narrows FindReferencingNodes.
type ReferencingFilter struct {
	// NodeTypes restricts the referencing nodes. The zero value allows all.
	NodeTypes cg.NodeTypeCriteria
	// ReferenceName restricts the reference. Empty matches any reference.
	ReferenceName string
	// Logical collapses dimension variants of the same aggregate into one
	// result instead of deduplicating by NodeHash.
	Logical bool
}

// FindReferencingNodes returns the nodes that reference any of the given
// nodes, without duplicates.
func (s *Service) FindReferencingNodes(ctx context.Context, nodes []*cg.Node, filter ReferencingFilter) ([]*cg.Node, error) {
	key := NodeHash
	if filter.Logical {
		key = logicalKey
	}
	set := newNodeSet(key)
	for _, node := range nodes {
		refs, err := s.repo.SubgraphForNode(node).FindBackReferences(ctx, node.AggregateID, cg.FindBackReferencesFilter{
			NodeTypes:     filter.NodeTypes,
			ReferenceName: filter.ReferenceName,
		})
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			set.add(ref.Node)
		}
	}
	return set.nodes, nil
}
