package taxonomy

import (
	"context"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// TreeItem is the JSON shape of a taxonomy tree for selection UIs.
type TreeItem struct {
	Identifier  string     `json:"identifier"`
	Path        string     `json:"path"`
	NodeType    string     `json:"nodeType"`
	Label       string     `json:"label"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Children    []TreeItem `json:"children"`
}

const treePathSeparator = " - "

// BuildTree converts an ordered subtree. Paths join the name (or label) of
// every node from st down, separated by " - ".
func BuildTree(st *cg.Subtree) *TreeItem {
	if st == nil {
		return nil
	}
	item := buildTreeItem(st, "")
	return &item
}

func buildTreeItem(st *cg.Subtree, parentPath string) TreeItem {
	n := st.Node
	label := n.Label()
	segment := label
	if n.Name != "" {
		segment = n.Name.String()
	}
	path := segment
	if parentPath != "" {
		path = parentPath + treePathSeparator + segment
	}

	title := n.StringProperty("title")
	if title == "" {
		title = label
	}

	children := make([]TreeItem, 0, len(st.Children))
	for _, child := range st.Children {
		children = append(children, buildTreeItem(child, path))
	}
	return TreeItem{
		Identifier:  n.AggregateID.String(),
		Path:        path,
		NodeType:    n.TypeName.String(),
		Label:       label,
		Title:       title,
		Description: n.StringProperty("description"),
		Children:    children,
	}
}

// InspectorTree resolves startingPoint, a path below the taxonomy root, in
// the subgraph of the node at contextAddress and returns its ordered tree.
// It returns nil if the starting point does not exist.
func (s *Service) InspectorTree(ctx context.Context, contextAddress, startingPoint string) (*TreeItem, error) {
	contextNode, err := s.NodeByAddress(ctx, contextAddress)
	if err != nil || contextNode == nil {
		return nil, err
	}
	sg := s.repo.SubgraphForNode(contextNode)
	root, err := s.FindOrCreateRoot(ctx, sg)
	if err != nil {
		return nil, err
	}
	start, err := sg.FindNodeByPath(ctx, cg.ParseNodePath(startingPoint), root.AggregateID)
	if err != nil || start == nil {
		return nil, err
	}
	st, err := s.ResolveSubtree(ctx, start)
	if err != nil {
		return nil, err
	}
	return BuildTree(st), nil
}
