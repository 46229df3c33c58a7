// Package memory implements an event-sourced content repository held in
// process memory.
//
// Commands are validated against the current projection and turned into
// events. The events are appended to a journal and handed to a single
// projector goroutine which applies them to the graph. CommandResult.Block
// waits until that has happened. On Open the journal is replayed, so a
// persistent journal (badgerjournal, natsjournal) survives restarts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	errs "github.com/c360studio/semstreams/errors"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/journal"
)

const component = "memory"

// Options configures a Repository.
type Options struct {
	ID        cg.ContentRepositoryID
	NodeTypes *cg.NodeTypeManager
	Variation *cg.VariationGraph
	// Journal defaults to a fresh journal.Memory.
	Journal journal.Journal
	Logger  *slog.Logger
}

// Repository is a cg.ContentRepository.
type Repository struct {
	id        cg.ContentRepositoryID
	nodeTypes *cg.NodeTypeManager
	variation *cg.VariationGraph
	journal   journal.Journal
	logger    *slog.Logger

	// cmdMu serializes Handle. seq and lastDone are guarded by it.
	cmdMu    sync.Mutex
	seq      uint64
	lastDone chan struct{}
	closed   bool

	mu    sync.RWMutex // guards graph
	graph *graph

	queue chan batch
	wg    sync.WaitGroup
}

var _ cg.ContentRepository = (*Repository)(nil)

type batch struct {
	events []event
	result *commandResult
}

type commandResult struct {
	done chan struct{}
	err  error
}

// Block implements cg.CommandResult.
func (r *commandResult) Block(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func completed() *commandResult {
	r := &commandResult{done: make(chan struct{})}
	close(r.done)
	return r
}

// Open replays the journal, creates the live workspace if it does not exist
// yet and starts the projector.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.NodeTypes == nil {
		return nil, errors.New("node type manager is required")
	}
	if opts.Variation == nil {
		v, err := cg.NewVariationGraph(nil)
		if err != nil {
			return nil, err
		}
		opts.Variation = v
	}
	if opts.Journal == nil {
		opts.Journal = journal.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ID == "" {
		opts.ID = "default"
	}

	r := &Repository{
		id:        opts.ID,
		nodeTypes: opts.NodeTypes,
		variation: opts.Variation,
		journal:   opts.Journal,
		logger:    opts.Logger.With("content_repository", string(opts.ID)),
		lastDone:  completed().done,
		graph:     newGraph(opts.Variation),
		queue:     make(chan batch, 64),
	}

	if err := r.replay(ctx); err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go r.project()

	if _, ok := r.graph.workspaces[cg.LiveWorkspaceName]; !ok {
		res, err := r.emit(ctx, []event{&WorkspaceWasCreated{
			WorkspaceName:   cg.LiveWorkspaceName,
			ContentStreamID: cg.NewContentStreamID(),
		}})
		if err == nil {
			err = res.Block(ctx)
		}
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("create live workspace: %w", err)
		}
	}
	return r, nil
}

func (r *Repository) replay(ctx context.Context) error {
	stored, err := r.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	for _, je := range stored {
		e, err := decodeEvent(je)
		if err != nil {
			return errs.WrapFatal(err, component, "replay", "decode event")
		}
		if err := r.graph.apply(e); err != nil {
			return errs.WrapFatal(err, component, "replay", fmt.Sprintf("apply %s at sequence %d", je.Type, je.Sequence))
		}
		r.seq = je.Sequence
	}
	r.logger.Debug("Replayed journal", "events", len(stored), "sequence", r.seq)
	return nil
}

func (r *Repository) project() {
	defer r.wg.Done()
	for b := range r.queue {
		r.mu.Lock()
		for _, e := range b.events {
			if err := r.graph.apply(e); err != nil {
				r.logger.Error("Failed to apply event", "type", e.eventType(), "error", err)
				b.result.err = errs.WrapFatal(err, component, "project", "apply "+e.eventType())
				break
			}
		}
		r.mu.Unlock()
		close(b.result.done)
	}
}

// Handle implements cg.ContentRepository. The command is validated against a
// projection that includes every previously handled command.
func (r *Repository) Handle(ctx context.Context, cmd cg.Command) (cg.CommandResult, error) {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	if r.closed {
		return nil, errs.WrapFatal(cg.ErrRepositoryClosed, component, "Handle", cmd.CommandName())
	}

	select {
	case <-r.lastDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.RLock()
	events, err := r.decide(cmd)
	r.mu.RUnlock()
	if err != nil {
		r.logger.Debug("Command rejected", "command", cmd.CommandName(), "error", err)
		return nil, errs.WrapInvalid(err, component, "Handle", "decide "+cmd.CommandName())
	}
	return r.emit(ctx, events)
}

// emit persists events and queues them for projection. Callers hold cmdMu
// or run before the repository is shared.
func (r *Repository) emit(ctx context.Context, events []event) (*commandResult, error) {
	if len(events) == 0 {
		return completed(), nil
	}

	now := time.Now().UTC()
	stored := make([]journal.Event, len(events))
	for i, e := range events {
		je, err := encodeEvent(r.seq+uint64(i)+1, e, now)
		if err != nil {
			return nil, err
		}
		stored[i] = je
	}
	if err := r.journal.Append(ctx, stored...); err != nil {
		return nil, errs.WrapTransient(err, component, "emit", "append to journal")
	}
	r.seq += uint64(len(events))

	res := &commandResult{done: make(chan struct{})}
	r.lastDone = res.done
	r.queue <- batch{events: events, result: res}
	return res, nil
}

// Close stops the projector after all queued events are applied and closes
// the journal.
func (r *Repository) Close() error {
	r.cmdMu.Lock()
	if r.closed {
		r.cmdMu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.cmdMu.Unlock()

	r.wg.Wait()
	return r.journal.Close()
}

// ID implements cg.ContentRepository.
func (r *Repository) ID() cg.ContentRepositoryID { return r.id }

// VariationGraph implements cg.ContentRepository.
func (r *Repository) VariationGraph() *cg.VariationGraph { return r.variation }

// NodeTypeManager implements cg.ContentRepository.
func (r *Repository) NodeTypeManager() *cg.NodeTypeManager { return r.nodeTypes }

// FindWorkspace implements cg.ContentRepository.
func (r *Repository) FindWorkspace(_ context.Context, name cg.WorkspaceName) (*cg.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.graph.workspaces[name]
	if !ok {
		return nil, nil
	}
	return &ws, nil
}

// Subgraph implements cg.ContentRepository.
func (r *Repository) Subgraph(contentStreamID cg.ContentStreamID, dsp cg.DimensionSpacePoint) cg.Subgraph {
	return &subgraph{
		repo: r,
		identity: cg.SubgraphIdentity{
			ContentRepositoryID: r.id,
			ContentStreamID:     contentStreamID,
			DimensionSpacePoint: dsp.Clone(),
		},
	}
}

// SubgraphForNode implements cg.ContentRepository.
func (r *Repository) SubgraphForNode(node *cg.Node) cg.Subgraph {
	return r.Subgraph(node.Subgraph.ContentStreamID, node.Subgraph.DimensionSpacePoint)
}
