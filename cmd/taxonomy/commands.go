package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sitegeist/taxonomy/config"
	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/taxonomy"
)

func withApp(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

// node resolves a node address or a vocabulary path.
func (a *app) node(ctx context.Context, arg string) (*cg.Node, error) {
	if !strings.Contains(arg, "__") {
		return a.resolve(ctx, arg)
	}
	n, err := a.svc.NodeByAddress(ctx, arg)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %q", errNothingFound, arg)
	}
	return n, nil
}

func vocabulariesCmd(g *globalFlags) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "vocabularies",
		Short: "List vocabularies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := doublestar.Match(filter, ""); err != nil {
				return fmt.Errorf("invalid filter pattern %q: %w", filter, err)
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				sg, err := a.subgraph(ctx)
				if err != nil {
					return err
				}
				vocabularies, err := a.svc.FindAllVocabularies(ctx, sg)
				if err != nil {
					return err
				}
				var matched []*cg.Node
				for _, v := range vocabularies {
					if filter != "" {
						if ok, _ := doublestar.Match(filter, v.Name.String()); !ok {
							continue
						}
					}
					matched = append(matched, v)
				}
				if len(matched) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No vocabularies")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderNodeTable(matched))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", `Glob pattern on vocabulary names, e.g. "col*"`)
	return cmd
}

func showCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show PATH",
		Short: "Print the ordered taxonomy tree of a vocabulary or term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				node, err := a.resolve(ctx, args[0])
				if err != nil {
					return reportNotFound(cmd, err)
				}
				st, err := a.svc.ResolveSubtree(ctx, node)
				if err != nil {
					return err
				}
				if st == nil {
					return reportNotFound(cmd, errNothingFound)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSubtree(st))
				return nil
			})
		},
	}
}

func treeCmd(g *globalFlags) *cobra.Command {
	var contextAddress string

	cmd := &cobra.Command{
		Use:   "tree PATH",
		Short: "Print a taxonomy tree as JSON",
		Long: `Print the ordered tree below PATH as JSON.

With --context the path is resolved below the taxonomy root in the
subgraph of the given node address, the way an editing UI would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				var tree *taxonomy.TreeItem
				if contextAddress != "" {
					var err error
					tree, err = a.svc.InspectorTree(ctx, contextAddress, args[0])
					if err != nil {
						return err
					}
				} else {
					node, err := a.resolve(ctx, args[0])
					if err != nil {
						return reportNotFound(cmd, err)
					}
					st, err := a.svc.ResolveSubtree(ctx, node)
					if err != nil {
						return err
					}
					tree = taxonomy.BuildTree(st)
				}
				if tree == nil {
					return reportNotFound(cmd, errNothingFound)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tree)
			})
		},
	}

	cmd.Flags().StringVar(&contextAddress, "context", "", "Node address whose subgraph the tree is read from")
	return cmd
}

func nodeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "node PATH|ADDRESS",
		Short: "Print details of a vocabulary, term or other node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				node, err := a.node(ctx, args[0])
				if err != nil {
					return reportNotFound(cmd, err)
				}
				d := nodeDetails{Node: node}
				if a.svc.Types().IsTaxonomy(node) || a.svc.Types().IsVocabulary(node) {
					if d.Vocabulary, err = a.svc.FindEnclosingVocabulary(ctx, node); err != nil {
						return err
					}
					if d.Ancestors, err = a.svc.FindTaxonomyAncestors(ctx, node); err != nil {
						return err
					}
				}
				if d.References, err = a.svc.FindReferencedTaxonomies(ctx, node); err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetails(d))
				return nil
			})
		},
	}
}

// propertyFlags are the editable properties of vocabularies and terms.
type propertyFlags struct {
	title       string
	description string
}

func (p *propertyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.title, "title", "", "Title (default: the name)")
	cmd.Flags().StringVar(&p.description, "description", "", "Description")
}

// properties returns the flags that were set explicitly.
func (p *propertyFlags) properties(cmd *cobra.Command) map[string]any {
	props := map[string]any{}
	if cmd.Flags().Changed("title") {
		props["title"] = p.title
	}
	if cmd.Flags().Changed("description") {
		props["description"] = p.description
	}
	return props
}

func vocabularyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Create, update and delete vocabularies",
	}

	var createProps propertyFlags
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a vocabulary below the taxonomy root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				sg, err := a.subgraph(ctx)
				if err != nil {
					return err
				}
				root, err := a.svc.FindOrCreateRoot(ctx, sg)
				if err != nil {
					return err
				}
				node, err := a.editor.CreateVocabulary(ctx, root, taxonomy.CreateInput{
					Name:       args[0],
					Properties: createProps.properties(cmd),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCreated(node))
				return nil
			})
		},
	}
	createProps.register(create)

	cmd.AddCommand(create, updateCmd(g, "VOCABULARY", "vocabulary"), deleteCmd(g, "VOCABULARY", "vocabulary"))
	return cmd
}

func termCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "term",
		Aliases: []string{"taxonomy"},
		Short:   "Create, update and delete taxonomy terms",
	}

	var createProps propertyFlags
	create := &cobra.Command{
		Use:   "create PARENT_PATH NAME",
		Short: "Create a term below a vocabulary or another term",
		Example: `  taxonomy term create colors Warm
  taxonomy term create colors/warm Red --title "Red"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				parent, err := a.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				node, err := a.editor.CreateTaxonomy(ctx, parent, taxonomy.CreateInput{
					Name:       args[1],
					Properties: createProps.properties(cmd),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCreated(node))
				return nil
			})
		},
	}
	createProps.register(create)

	cmd.AddCommand(create, updateCmd(g, "PATH", "term"), deleteCmd(g, "PATH", "term"))
	return cmd
}

func updateCmd(g *globalFlags, arg, kind string) *cobra.Command {
	var (
		props propertyFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "update " + arg,
		Short: "Rename a " + kind + " or change its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				node, err := a.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				in := taxonomy.UpdateInput{Name: node.Name.String(), Properties: props.properties(cmd)}
				if name != "" {
					in.Name = name
				}
				updated, err := a.editor.Update(ctx, node, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCreated(updated))
				return nil
			})
		},
	}

	props.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "New name")
	return cmd
}

func deleteCmd(g *globalFlags, arg, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + arg,
		Short: "Delete a " + kind + " with all its terms in every dimension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				node, err := a.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.editor.Delete(ctx, node); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func referenceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage and query references to taxonomy terms",
	}

	var setName string
	set := &cobra.Command{
		Use:   "set SOURCE TARGET_PATH...",
		Short: "Replace the references of SOURCE (a path or node address)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				source, err := a.node(ctx, args[0])
				if err != nil {
					return err
				}
				targets := make([]*cg.Node, 0, len(args)-1)
				for _, path := range args[1:] {
					target, err := a.node(ctx, path)
					if err != nil {
						return err
					}
					targets = append(targets, target)
				}
				if err := a.editor.SetReferences(ctx, source, setName, targets); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %d reference(s) on %s\n", len(targets), args[0])
				return nil
			})
		},
	}
	set.Flags().StringVar(&setName, "name", "", "Reference name (default: the configured reference name)")

	list := &cobra.Command{
		Use:   "list SOURCE",
		Short: "List the taxonomy terms SOURCE references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				source, err := a.node(ctx, args[0])
				if err != nil {
					return reportNotFound(cmd, err)
				}
				found, err := a.svc.FindReferencedTaxonomies(ctx, source)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					return reportNotFound(cmd, errNothingFound)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderNodeTable(found))
				return nil
			})
		},
	}

	var (
		filter    taxonomy.ReferencingFilter
		nodeTypes []string
	)
	sources := &cobra.Command{
		Use:   "sources TARGET...",
		Short: "List the nodes referencing any of the given terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				if len(nodeTypes) > 0 {
					names := make([]cg.NodeTypeName, 0, len(nodeTypes))
					for _, t := range nodeTypes {
						name := cg.NodeTypeName(t)
						if !a.repo.NodeTypeManager().Has(name) {
							return fmt.Errorf("%w: %s", cg.ErrNodeTypeNotDeclared, name)
						}
						names = append(names, name)
					}
					filter.NodeTypes = a.svc.Types().Criteria(names...)
				}
				targets := make([]*cg.Node, 0, len(args))
				for _, arg := range args {
					target, err := a.node(ctx, arg)
					if err != nil {
						return reportNotFound(cmd, err)
					}
					targets = append(targets, target)
				}
				found, err := a.svc.FindReferencingNodes(ctx, targets, filter)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					return reportNotFound(cmd, errNothingFound)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderNodeTable(found))
				return nil
			})
		},
	}
	sources.Flags().StringVar(&filter.ReferenceName, "name", "", "Only follow this reference (default: any)")
	sources.Flags().StringSliceVarP(&nodeTypes, "type", "t", nil, `Only nodes of these types or their subtypes, e.g. "Neos.Neos:Document" (default: any)`)
	sources.Flags().BoolVar(&filter.Logical, "logical", false, "Collapse dimension variants of the same node")

	cmd.AddCommand(set, list, sources)
	return cmd
}

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	var user bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ProjectConfigFile + " in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user {
				path, err := config.NewLoader(newLogger(g.logLevel)).EnsureUserConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			if _, err := os.Stat(config.ProjectConfigFile); err == nil {
				return fmt.Errorf("%s already exists", config.ProjectConfigFile)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.DefaultConfig().SaveToFile(config.ProjectConfigFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.ProjectConfigFile)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "Write the user config (~/"+config.UserConfigDir+"/"+config.UserConfigFile+") instead")

	cmd.AddCommand(show, initCmd)
	return cmd
}

// reportNotFound prints "nothing found" for lookups that came back empty.
func reportNotFound(cmd *cobra.Command, err error) error {
	if errors.Is(err, errNothingFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing found")
	}
	return err
}
