// Package contentgraph models the content repository the taxonomy core runs on.
//
// It defines the value types shared by every store implementation (aggregate
// ids, content streams, dimension space points, node types, nodes, subtrees and
// references), the typed query filters, the write commands, and the two ports
// the core depends on:
//
//   - Subgraph: read access to one content stream in one dimension space point
//   - ContentRepository: command handling plus subgraph, workspace and
//     variation graph access
//
// Implementations live in sub-packages, e.g. contentgraph/memory.
package contentgraph
