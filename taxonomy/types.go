package taxonomy

import (
	"fmt"

	errs "github.com/c360studio/semstreams/errors"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// Default node type names.
const (
	DefaultRootTypeName       cg.NodeTypeName = "Sitegeist.Taxonomy:Root"
	DefaultVocabularyTypeName cg.NodeTypeName = "Sitegeist.Taxonomy:Vocabulary"
	DefaultTaxonomyTypeName   cg.NodeTypeName = "Sitegeist.Taxonomy:Taxonomy"
)

// TypeNames are the three node types the taxonomy core recognizes.
type TypeNames struct {
	Root       cg.NodeTypeName
	Vocabulary cg.NodeTypeName
	Taxonomy   cg.NodeTypeName
}

// DefaultTypeNames returns the Sitegeist.Taxonomy type names.
func DefaultTypeNames() TypeNames {
	return TypeNames{
		Root:       DefaultRootTypeName,
		Vocabulary: DefaultVocabularyTypeName,
		Taxonomy:   DefaultTaxonomyTypeName,
	}
}

// TypeRegistry answers whether a node is a taxonomy root, vocabulary or
// taxonomy. Checks honor node type inheritance.
type TypeRegistry struct {
	names   TypeNames
	manager *cg.NodeTypeManager
}

// NewTypeRegistry fails if a type name is empty or not declared in manager.
func NewTypeRegistry(manager *cg.NodeTypeManager, names TypeNames) (*TypeRegistry, error) {
	if manager == nil {
		return nil, errs.WrapInvalid(ErrInvalidConfiguration, component, "NewTypeRegistry", "node type manager missing")
	}
	for _, t := range []struct {
		role string
		name cg.NodeTypeName
	}{
		{"root", names.Root},
		{"vocabulary", names.Vocabulary},
		{"taxonomy", names.Taxonomy},
	} {
		role, name := t.role, t.name
		if name == "" {
			return nil, errs.WrapInvalid(ErrInvalidConfiguration, component, "NewTypeRegistry", role+" type name empty")
		}
		if !manager.Has(name) {
			return nil, errs.WrapInvalid(ErrInvalidConfiguration, component, "NewTypeRegistry",
				fmt.Sprintf("%s type %q not declared", role, name))
		}
	}
	return &TypeRegistry{names: names, manager: manager}, nil
}

func (r *TypeRegistry) is(node *cg.Node, typeName cg.NodeTypeName) bool {
	return node != nil && r.manager.IsOfType(node.TypeName, typeName)
}

func (r *TypeRegistry) IsRoot(node *cg.Node) bool       { return r.is(node, r.names.Root) }
func (r *TypeRegistry) IsVocabulary(node *cg.Node) bool { return r.is(node, r.names.Vocabulary) }
func (r *TypeRegistry) IsTaxonomy(node *cg.Node) bool   { return r.is(node, r.names.Taxonomy) }

func (r *TypeRegistry) RootTypeName() cg.NodeTypeName       { return r.names.Root }
func (r *TypeRegistry) VocabularyTypeName() cg.NodeTypeName { return r.names.Vocabulary }
func (r *TypeRegistry) TaxonomyTypeName() cg.NodeTypeName   { return r.names.Taxonomy }

// Criteria builds node type criteria allowing the given types and their subtypes.
func (r *TypeRegistry) Criteria(names ...cg.NodeTypeName) cg.NodeTypeCriteria {
	return cg.AllowTypes(names...)
}

// VocabularyOrTaxonomy matches the node types a taxonomy subtree consists of.
func (r *TypeRegistry) VocabularyOrTaxonomy() cg.NodeTypeCriteria {
	return r.Criteria(r.names.Taxonomy, r.names.Vocabulary)
}
