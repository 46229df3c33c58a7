package contentgraph

import "errors"

// Errors reported by content repository implementations when a command is rejected.
var (
	ErrContentStreamNotFound      = errors.New("content stream not found")
	ErrWorkspaceNotFound          = errors.New("workspace not found")
	ErrNodeAggregateNotFound      = errors.New("node aggregate not found")
	ErrNodeAggregateExists        = errors.New("node aggregate already exists")
	ErrRootNodeAggregateExists    = errors.New("root node aggregate of this type already exists")
	ErrNodeTypeNotDeclared        = errors.New("node type not declared")
	ErrDimensionPointNotAllowed   = errors.New("dimension space point not allowed")
	ErrParentNotVisible           = errors.New("parent node not visible in dimension space point")
	ErrNodeNameTaken              = errors.New("node name already taken by a sibling")
	ErrNodeVariantNotFound        = errors.New("node variant not found")
	ErrNodeVariantExists          = errors.New("node variant already exists")
	ErrRootNodeAggregateImmutable = errors.New("root node aggregate cannot be changed")
	ErrInvalidReferenceName       = errors.New("invalid reference name")
	ErrUnknownCommand             = errors.New("unknown command")
	ErrRepositoryClosed           = errors.New("content repository closed")
	ErrInvalidNodeAddress         = errors.New("invalid node address")
)
