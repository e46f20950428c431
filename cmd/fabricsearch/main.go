// Command fabricsearch loads a fabric hierarchy, indexes it and prints the
// ranked matches for a query.
//
// Usage:
//
//	fabricsearch [--config file] search [--snapshot file] [--force] <query...>
//	fabricsearch object <dn>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/resilience"
)

const loadFailure = "% Could not load fabric"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "fabricsearch",
		Usage:     "Search fabric objects by class, attribute and value",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				EnvVars: []string{"FS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetupWriter(stderr, c.String("log-level"), "text")
			return nil
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(stderr, msg)
			}
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Print objects ranked by how specifically they match the query",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: append(loadFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 uses the configured maxResults)",
					},
				),
			},
			{
				Name:      "object",
				Usage:     "Print the attributes, parent and children of one object",
				ArgsUsage: "<dn>",
				Action:    objectCommand,
				Flags:     loadFlags(),
			},
			{
				Name:   "classes",
				Usage:  "Print the number of objects per class",
				Action: classesCommand,
				Flags:  loadFlags(),
			},
		},
	}
}

func loadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "snapshot",
			Aliases: []string{"s"},
			Usage:   "Read the hierarchy from this YAML/JSON snapshot instead of the configured source",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Force a rebuild of the search index",
		},
	}
}

// openDB builds the search database described by the config and flags and
// loads it.
func openDB(c *cli.Context, limit int) (*searchdb.DB, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if snap := c.String("snapshot"); snap != "" {
		cfg.Source.Kind = config.SourceFile
		cfg.Source.SnapshotPath = snap
	}
	if limit > 0 {
		cfg.Search.MaxResults = limit
	}

	src, closeSource, err := source.FromConfig(c.Context, cfg)
	if err != nil {
		return nil, nil, loadFailed(c, err)
	}
	db := searchdb.New(src, searchdb.Options{
		MaxResults:   cfg.Search.MaxResults,
		BuildTimeout: cfg.Index.BuildTimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Source.RetryAttempts,
			InitialDelay: cfg.Source.RetryDelay,
		},
	}, nil)
	if _, err := db.Load(c.Context, c.Bool("force")); err != nil {
		closeSource()
		return nil, nil, loadFailed(c, err)
	}
	return db, func() { closeSource() }, nil
}

func loadFailed(c *cli.Context, err error) error {
	fmt.Fprintln(c.App.Writer, loadFailure)
	return cli.Exit(err.Error(), 1)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return cli.Exit("a query is required", 2)
	}
	db, done, err := openDB(c, c.Int("limit"))
	if err != nil {
		return err
	}
	defer done()

	res, err := db.Search(c.Context, query)
	if err != nil {
		return err
	}
	printResults(c.App.Writer, res)
	return nil
}

func printResults(w io.Writer, res *searchdb.Results) {
	if len(res.Hits) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tCLASS\tNAME\tDN\tMATCHED")
	for _, hit := range res.Hits {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			hit.PrimaryScore, hit.Class, hit.Name, hit.ID, strings.Join(hit.MatchedTerms, " "))
	}
	tw.Flush()
	if more := res.More(); more > 0 {
		fmt.Fprintf(w, "%d more results\n", more)
	}
}

func objectCommand(c *cli.Context) error {
	dn := c.Args().First()
	if dn == "" {
		return cli.Exit("a dn is required", 2)
	}
	db, done, err := openDB(c, 0)
	if err != nil {
		return err
	}
	defer done()

	info, err := db.Object(dn)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	w := c.App.Writer
	fmt.Fprintf(w, "%s %s (%s)\n", info.Properties.Class, info.Properties.Name, info.Properties.DN)
	if info.Parent != nil {
		fmt.Fprintf(w, "parent: %s %s (%s)\n", info.Parent.Class, info.Parent.Name, info.Parent.DN)
	}
	fmt.Fprintln(w, "attributes:")
	for _, name := range sortedKeys(info.Attributes) {
		fmt.Fprintf(w, "  %s = %s\n", name, info.Attributes[name])
	}
	if len(info.Children) > 0 {
		fmt.Fprintln(w, "children:")
		for _, class := range sortedKeys(info.Children) {
			for _, child := range info.Children[class] {
				fmt.Fprintf(w, "  %s %s (%s)\n", child.Class, child.Name, child.DN)
			}
		}
	}
	return nil
}

func classesCommand(c *cli.Context) error {
	db, done, err := openDB(c, 0)
	if err != nil {
		return err
	}
	defer done()

	counts := db.Summary()
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	for _, class := range sortedKeys(counts) {
		fmt.Fprintf(tw, "%s\t%d\n", class, counts[class])
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
