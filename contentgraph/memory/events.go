package memory

import (
	"encoding/json"
	"fmt"
	"time"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/journal"
)

// Event type names as stored in the journal.
const (
	EventWorkspaceWasCreated              = "WorkspaceWasCreated"
	EventRootNodeAggregateWithNodeCreated = "RootNodeAggregateWithNodeCreated"
	EventNodeAggregateWithNodeCreated     = "NodeAggregateWithNodeCreated"
	EventNodePropertiesWereSet            = "NodePropertiesWereSet"
	EventNodeAggregateNameWasChanged      = "NodeAggregateNameWasChanged"
	EventNodeVariantWasCreated            = "NodeVariantWasCreated"
	EventNodeAggregateWasRemoved          = "NodeAggregateWasRemoved"
	EventNodeReferencesWereSet            = "NodeReferencesWereSet"
)

type event interface {
	eventType() string
}

type WorkspaceWasCreated struct {
	WorkspaceName   cg.WorkspaceName   `json:"workspace_name"`
	ContentStreamID cg.ContentStreamID `json:"content_stream_id"`
}

type RootNodeAggregateWithNodeCreated struct {
	ContentStreamID cg.ContentStreamID `json:"content_stream_id"`
	NodeAggregateID cg.NodeAggregateID `json:"node_aggregate_id"`
	NodeTypeName    cg.NodeTypeName    `json:"node_type_name"`
}

type NodeAggregateWithNodeCreated struct {
	ContentStreamID       cg.ContentStreamID     `json:"content_stream_id"`
	NodeAggregateID       cg.NodeAggregateID     `json:"node_aggregate_id"`
	NodeTypeName          cg.NodeTypeName        `json:"node_type_name"`
	Origin                cg.DimensionSpacePoint `json:"origin"`
	ParentNodeAggregateID cg.NodeAggregateID     `json:"parent_node_aggregate_id"`
	NodeName              cg.NodeName            `json:"node_name,omitempty"`
	Properties            map[string]any         `json:"properties,omitempty"`
}

type NodePropertiesWereSet struct {
	ContentStreamID cg.ContentStreamID     `json:"content_stream_id"`
	NodeAggregateID cg.NodeAggregateID     `json:"node_aggregate_id"`
	Origin          cg.DimensionSpacePoint `json:"origin"`
	Properties      map[string]any         `json:"properties"`
}

type NodeAggregateNameWasChanged struct {
	ContentStreamID cg.ContentStreamID `json:"content_stream_id"`
	NodeAggregateID cg.NodeAggregateID `json:"node_aggregate_id"`
	NewNodeName     cg.NodeName        `json:"new_node_name"`
}

type NodeVariantWasCreated struct {
	ContentStreamID cg.ContentStreamID     `json:"content_stream_id"`
	NodeAggregateID cg.NodeAggregateID     `json:"node_aggregate_id"`
	SourceOrigin    cg.DimensionSpacePoint `json:"source_origin"`
	TargetOrigin    cg.DimensionSpacePoint `json:"target_origin"`
}

// RemovedVariant is one origin variant dropped by a removal.
type RemovedVariant struct {
	NodeAggregateID cg.NodeAggregateID     `json:"node_aggregate_id"`
	Origin          cg.DimensionSpacePoint `json:"origin"`
}

// NodeAggregateWasRemoved lists every variant the removal affects, descendants
// included, so replay does not depend on the graph shape at decision time.
type NodeAggregateWasRemoved struct {
	ContentStreamID cg.ContentStreamID `json:"content_stream_id"`
	NodeAggregateID cg.NodeAggregateID `json:"node_aggregate_id"`
	Removed         []RemovedVariant   `json:"removed"`
}

type NodeReferencesWereSet struct {
	ContentStreamID       cg.ContentStreamID     `json:"content_stream_id"`
	SourceNodeAggregateID cg.NodeAggregateID     `json:"source_node_aggregate_id"`
	SourceOrigin          cg.DimensionSpacePoint `json:"source_origin"`
	ReferenceName         string                 `json:"reference_name"`
	Targets               []cg.NodeAggregateID   `json:"targets"`
}

func (WorkspaceWasCreated) eventType() string              { return EventWorkspaceWasCreated }
func (RootNodeAggregateWithNodeCreated) eventType() string { return EventRootNodeAggregateWithNodeCreated }
func (NodeAggregateWithNodeCreated) eventType() string     { return EventNodeAggregateWithNodeCreated }
func (NodePropertiesWereSet) eventType() string            { return EventNodePropertiesWereSet }
func (NodeAggregateNameWasChanged) eventType() string      { return EventNodeAggregateNameWasChanged }
func (NodeVariantWasCreated) eventType() string            { return EventNodeVariantWasCreated }
func (NodeAggregateWasRemoved) eventType() string          { return EventNodeAggregateWasRemoved }
func (NodeReferencesWereSet) eventType() string            { return EventNodeReferencesWereSet }

func encodeEvent(seq uint64, e event, now time.Time) (journal.Event, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return journal.Event{}, fmt.Errorf("marshal %s: %w", e.eventType(), err)
	}
	return journal.Event{
		Sequence:   seq,
		Type:       e.eventType(),
		Payload:    payload,
		RecordedAt: now,
	}, nil
}

func decodeEvent(je journal.Event) (event, error) {
	var e event
	switch je.Type {
	case EventWorkspaceWasCreated:
		e = &WorkspaceWasCreated{}
	case EventRootNodeAggregateWithNodeCreated:
		e = &RootNodeAggregateWithNodeCreated{}
	case EventNodeAggregateWithNodeCreated:
		e = &NodeAggregateWithNodeCreated{}
	case EventNodePropertiesWereSet:
		e = &NodePropertiesWereSet{}
	case EventNodeAggregateNameWasChanged:
		e = &NodeAggregateNameWasChanged{}
	case EventNodeVariantWasCreated:
		e = &NodeVariantWasCreated{}
	case EventNodeAggregateWasRemoved:
		e = &NodeAggregateWasRemoved{}
	case EventNodeReferencesWereSet:
		e = &NodeReferencesWereSet{}
	default:
		return nil, fmt.Errorf("unknown event type %q at sequence %d", je.Type, je.Sequence)
	}
	if err := json.Unmarshal(je.Payload, e); err != nil {
		return nil, fmt.Errorf("unmarshal %s at sequence %d: %w", je.Type, je.Sequence, err)
	}
	return e, nil
}
