package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/sitegeist/taxonomy/config"
	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/contentgraph/memory"
	"github.com/sitegeist/taxonomy/journal"
	"github.com/sitegeist/taxonomy/journal/badgerjournal"
	"github.com/sitegeist/taxonomy/journal/natsjournal"
	"github.com/sitegeist/taxonomy/taxonomy"
)

// app wires configuration, journal, repository and taxonomy service for one
// command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   *memory.Repository
	svc    *taxonomy.Service
	editor *taxonomy.Editor
	dsp    cg.DimensionSpacePoint
	nats   *natsclient.Client
}

func loadConfig(g *globalFlags) (*config.Config, *slog.Logger, error) {
	logger := newLogger(g.logLevel)
	cfg, err := config.NewLoader(logger).Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel == "" {
		logger = newLogger(cfg.Log.Level)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openApp(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	nodeTypes, err := cfg.NodeTypeManager()
	if err != nil {
		return nil, fmt.Errorf("invalid node types: %w", err)
	}
	variation, err := cfg.VariationGraph()
	if err != nil {
		return nil, fmt.Errorf("invalid dimensions: %w", err)
	}
	types, err := taxonomy.NewTypeRegistry(nodeTypes, cfg.TypeNames())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if g.dimension != "" {
		if a.dsp, err = parseDimension(g.dimension); err != nil {
			return nil, err
		}
	}

	j, err := a.openJournal(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.repo, err = memory.Open(ctx, memory.Options{
		ID:        cg.ContentRepositoryID(cfg.ContentRepository.Identifier),
		NodeTypes: nodeTypes,
		Variation: variation,
		Journal:   j,
		Logger:    logger,
	})
	if err != nil {
		j.Close()
		a.Close(ctx)
		return nil, fmt.Errorf("open content repository: %w", err)
	}

	a.svc = taxonomy.NewService(a.repo, types,
		taxonomy.WithLogger(logger),
		taxonomy.WithReferenceName(cfg.ContentRepository.ReferenceName),
	)
	a.editor = taxonomy.NewEditor(a.svc)
	return a, nil
}

func (a *app) openJournal(ctx context.Context) (journal.Journal, error) {
	st := a.cfg.Storage
	a.logger.Debug("Opening journal", "backend", st.Backend)

	switch st.Backend {
	case config.StorageMemory:
		return journal.NewMemory(), nil
	case config.StorageBadger:
		bc := badgerjournal.DefaultConfig(st.Path)
		bc.Logger = a.logger
		return badgerjournal.Open(bc)
	case config.StorageNATS:
		client, err := connectToNATS(ctx, st.NATSURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.nats = client
		js, err := client.JetStream()
		if err != nil {
			return nil, fmt.Errorf("get JetStream context: %w", err)
		}
		return natsjournal.New(ctx, js, st.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}

// Close stops the repository, which closes the journal, and disconnects from NATS.
func (a *app) Close(ctx context.Context) {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("Failed to close content repository", "error", err)
		}
	}
	if a.nats != nil {
		if err := a.nats.Close(ctx); err != nil {
			a.logger.Warn("Failed to close NATS connection", "error", err)
		}
	}
}

// subgraph is the live subgraph for --dimension, or the default one.
func (a *app) subgraph(ctx context.Context) (cg.Subgraph, error) {
	if a.dsp == nil {
		return a.svc.DefaultSubgraph(ctx)
	}
	return a.svc.Subgraph(ctx, a.dsp)
}

// resolve finds the vocabulary or term at a "/"-separated path.
func (a *app) resolve(ctx context.Context, path string) (*cg.Node, error) {
	sg, err := a.subgraph(ctx)
	if err != nil {
		return nil, err
	}
	var segments []string
	for _, name := range cg.ParseNodePath(path) {
		segments = append(segments, name.String())
	}
	node, err := a.svc.ResolveByPath(ctx, sg, segments)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %q", errNothingFound, path)
	}
	return node, nil
}

// parseDimension accepts "key=value,key=value" or the JSON form.
func parseDimension(s string) (cg.DimensionSpacePoint, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "{") {
		return cg.ParseDimensionSpacePoint(s)
	}
	dsp := cg.DimensionSpacePoint{}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid dimension %q, expected key=value", pair)
		}
		dsp[key] = value
	}
	return dsp, nil
}

func connectToNATS(ctx context.Context, configured string, logger *slog.Logger) (*natsclient.Client, error) {
	natsURLs := "nats://localhost:4222"

	// Environment variable override takes precedence
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		natsURLs = envURL
	} else if envURL := os.Getenv("TAXONOMY_NATS_URL"); envURL != "" {
		natsURLs = envURL
	} else if configured != "" {
		natsURLs = configured
	}

	logger.Info("Connecting to NATS", "url", natsURLs)

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(5),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(ctx)
		return nil, wrapNATSError(err, natsURLs)
	}

	logger.Debug("Connected to NATS", "url", natsURLs)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server with JetStream enabled, e.g.
  docker run -p 4222:4222 nats -js

Or set NATS_URL to point to your NATS server, or use storage.backend: badger.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
