package contentgraph

import (
	"fmt"
	"sort"
)

// NodeType declares a node type and its direct supertypes.
type NodeType struct {
	Name       NodeTypeName
	SuperTypes []NodeTypeName
}

// NodeTypeManager holds the declared node types and resolves the subtype relation.
type NodeTypeManager struct {
	types map[NodeTypeName]NodeType
	// ancestry caches every type's transitive supertypes including itself.
	ancestry map[NodeTypeName]map[NodeTypeName]bool
}

// NewNodeTypeManager validates that every supertype is declared and the
// hierarchy is acyclic.
func NewNodeTypeManager(types ...NodeType) (*NodeTypeManager, error) {
	m := &NodeTypeManager{
		types:    make(map[NodeTypeName]NodeType, len(types)),
		ancestry: make(map[NodeTypeName]map[NodeTypeName]bool, len(types)),
	}
	for _, t := range types {
		if t.Name == "" {
			return nil, fmt.Errorf("node type without name")
		}
		if _, exists := m.types[t.Name]; exists {
			return nil, fmt.Errorf("node type %q declared twice", t.Name)
		}
		m.types[t.Name] = t
	}
	for _, t := range types {
		for _, super := range t.SuperTypes {
			if _, ok := m.types[super]; !ok {
				return nil, fmt.Errorf("node type %q: supertype %q is not declared", t.Name, super)
			}
		}
	}
	for _, t := range types {
		ancestors, err := m.resolve(t.Name, map[NodeTypeName]bool{})
		if err != nil {
			return nil, err
		}
		m.ancestry[t.Name] = ancestors
	}
	return m, nil
}

func (m *NodeTypeManager) resolve(name NodeTypeName, visiting map[NodeTypeName]bool) (map[NodeTypeName]bool, error) {
	if visiting[name] {
		return nil, fmt.Errorf("node type %q inherits from itself", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	out := map[NodeTypeName]bool{name: true}
	for _, super := range m.types[name].SuperTypes {
		ancestors, err := m.resolve(super, visiting)
		if err != nil {
			return nil, err
		}
		for a := range ancestors {
			out[a] = true
		}
	}
	return out, nil
}

// Has reports whether name is declared.
func (m *NodeTypeManager) Has(name NodeTypeName) bool {
	_, ok := m.types[name]
	return ok
}

// IsOfType reports whether name equals super or inherits from it.
// Undeclared types are only of their own type.
func (m *NodeTypeManager) IsOfType(name, super NodeTypeName) bool {
	if name == super {
		return true
	}
	return m.ancestry[name][super]
}

// Names returns all declared type names, sorted.
func (m *NodeTypeManager) Names() []NodeTypeName {
	out := make([]NodeTypeName, 0, len(m.types))
	for name := range m.types {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NodeTypeCriteria selects nodes by type, honoring inheritance. The zero value
// matches every type. Disallowed types win over allowed ones.
type NodeTypeCriteria struct {
	Allowed    []NodeTypeName
	Disallowed []NodeTypeName
}

// AllowTypes builds criteria matching any of the given types or their subtypes.
func AllowTypes(names ...NodeTypeName) NodeTypeCriteria {
	return NodeTypeCriteria{Allowed: names}
}

// IsZero reports whether the criteria restrict nothing.
func (c NodeTypeCriteria) IsZero() bool {
	return len(c.Allowed) == 0 && len(c.Disallowed) == 0
}

// Matches evaluates the criteria for a node type.
func (c NodeTypeCriteria) Matches(m *NodeTypeManager, name NodeTypeName) bool {
	for _, d := range c.Disallowed {
		if m.IsOfType(name, d) {
			return false
		}
	}
	if len(c.Allowed) == 0 {
		return true
	}
	for _, a := range c.Allowed {
		if m.IsOfType(name, a) {
			return true
		}
	}
	return false
}
