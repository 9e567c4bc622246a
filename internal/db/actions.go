package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/content-qa/pkg/db"
	"github.com/dtnitsch/content-qa/pkg/docsource"
)

// ListFlags are the flags of cache list.
func ListFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum documents to list (0 = all)"},
	}
}

// PruneFlags are the flags of cache prune.
func PruneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "older-than", Usage: "drop documents fetched before this duration ago (default: cache_max_age)"},
		&cli.BoolFlag{Name: "all", Usage: "drop every cached document"},
	}
}

// ListAction prints the cached source-of-truth documents.
func ListAction(c *cli.Context) error {
	database, err := openCache(c)
	if err != nil {
		return err
	}
	defer database.Close()

	docs, err := database.ListDocuments(c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(docs) == 0 {
		fmt.Fprintln(w, "No cached documents")
		return nil
	}

	// Print table header
	fmt.Fprintf(w, "%-20s %-10s %-12s %s\n", "Fetched", "Size", "Hash", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, d := range docs {
		fmt.Fprintf(w, "%-20s %-10d %-12s %s\n",
			d.FetchedAt.Format("2006-01-02 15:04:05"),
			d.Size,
			shortHash(d.ContentHash),
			d.URL,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d documents (%s)\n", len(docs), database.Path())
	return nil
}

// ShowAction prints the cached text of one document.
func ShowAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("document URL required\nUsage: content-qa cache show <doc_url>")
	}

	database, err := openCache(c)
	if err != nil {
		return err
	}
	defer database.Close()

	arg := strings.TrimSpace(c.Args().First())

	// Documents are stored under their published URL
	doc, err := database.GetDocument(docsource.PublishedURL(arg))
	if errors.Is(err, dbpkg.ErrNotFound) {
		doc, err = database.GetDocument(arg)
	}
	if errors.Is(err, dbpkg.ErrNotFound) {
		return fmt.Errorf("document not cached: %s\n\nRun a check against it first:\n  content-qa verify --url <page> --doc-url %q", arg, arg)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "# %s (fetched %s)\n", doc.URL, doc.FetchedAt.Format(time.RFC3339))
	fmt.Fprintln(c.App.Writer, doc.Body)
	return nil
}

// PruneAction drops stale cached documents.
func PruneAction(c *cli.Context) error {
	database, err := openCache(c)
	if err != nil {
		return err
	}
	defer database.Close()

	cutoff, err := pruneCutoff(c, time.Now())
	if err != nil {
		return err
	}

	n, err := database.DeleteDocumentsBefore(cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Pruned %d documents\n", n)
	return nil
}

func pruneCutoff(c *cli.Context, now time.Time) (time.Time, error) {
	if c.Bool("all") {
		// fetched_at has second precision
		return now.Add(time.Second), nil
	}

	raw := c.String("older-than")
	if raw == "" {
		cfg, err := loadSettings(c)
		if err != nil {
			return time.Time{}, err
		}
		raw = cfg.CacheMaxAge
	}
	maxAge, err := time.ParseDuration(raw)
	if err != nil || maxAge < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q", raw)
	}
	return now.Add(-maxAge), nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
