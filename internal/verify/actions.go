package verify

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/content-qa/internal/app"
	"github.com/dtnitsch/content-qa/internal/common"
	"github.com/dtnitsch/content-qa/pkg/engine"
)

// Exit codes: 0 every page passed, 1 issues found, 2 the run could not start.
const (
	ExitIssues      = 1
	ExitOperational = 2
)

func checkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "ticket", Usage: "file a BugHerd task for every issue"},
		&cli.BoolFlag{Name: "check-links", Usage: "probe every outbound link"},
		&cli.BoolFlag{Name: "check-language", Usage: "compare page and document language"},
		&cli.BoolFlag{Name: "force-fetch", Usage: "ignore the cached document"},
		&cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json or yaml"},
	}
}

// VerifyFlags are the flags of the ad-hoc command.
func VerifyFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "live page to check"},
		&cli.StringFlag{Name: "doc-url", Aliases: []string{"d"}, Usage: "source-of-truth document"},
		&cli.StringFlag{Name: "project-id", Usage: "BugHerd project for --ticket"},
	}, checkFlags()...)
}

// ProjectFlags are the flags of the project command.
func ProjectFlags() []cli.Flag {
	return checkFlags()
}

// VerifyAction checks a single URL, optionally against a document.
func VerifyAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))
	startTime := time.Now()

	rawURL := c.String("url")
	if rawURL == "" {
		rawURL = c.Args().First()
	}
	if rawURL == "" {
		return cli.Exit(`Error: No URL provided
Usage:
  content-qa verify --url "https://example.com" [--doc-url "https://docs.google.com/..."]`, ExitOperational)
	}
	pageURL, err := common.ValidateURL(rawURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), ExitOperational)
	}

	var docURL string
	if raw := c.String("doc-url"); raw != "" {
		if docURL, err = common.ValidateURL(raw); err != nil {
			return cli.Exit(fmt.Sprintf("Error: --doc-url: %v", err), ExitOperational)
		}
	}

	if err := checkFormat(c); err != nil {
		return err
	}

	a, err := app.New(c.String("config"), logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", ExitOperational)
	}
	defer a.Close()

	opts := optionsFromFlags(c)
	opts.TicketProjectID = strings.TrimSpace(c.String("project-id"))
	if opts.Ticket && opts.TicketProjectID == "" {
		logger.Warn("--ticket without --project-id, no tickets will be filed")
	}

	run := a.Engine.RunAdHoc(c.Context, engine.AdHocRequest{URL: pageURL, DocURL: docURL, Options: opts})
	return writeRun(c, logger, run, startTime)
}

// ProjectAction checks every page of a configured project.
func ProjectAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))
	startTime := time.Now()

	projectID := strings.TrimSpace(c.Args().First())
	if projectID == "" {
		return cli.Exit(`Error: No project id provided
Usage:
  content-qa project <id>`, ExitOperational)
	}
	if err := checkFormat(c); err != nil {
		return err
	}

	a, err := app.New(c.String("config"), logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", ExitOperational)
	}
	defer a.Close()

	run, err := a.Engine.RunProject(c.Context, projectID, optionsFromFlags(c))
	if errors.Is(err, engine.ErrProjectNotFound) {
		return cli.Exit(fmt.Sprintf("Error: project %q not found in %s", projectID, c.String("config")), ExitOperational)
	}
	if err != nil {
		logger.Error("project run failed", "error", err)
		return cli.Exit("", ExitOperational)
	}
	return writeRun(c, logger, run, startTime)
}

func optionsFromFlags(c *cli.Context) engine.Options {
	return engine.Options{
		CheckLinks:    c.Bool("check-links"),
		CheckLanguage: c.Bool("check-language"),
		Ticket:        c.Bool("ticket"),
		ForceFetch:    c.Bool("force-fetch"),
	}
}

func checkFormat(c *cli.Context) error {
	switch strings.ToLower(c.String("format")) {
	case "json", "yaml":
		return nil
	}
	return cli.Exit(fmt.Sprintf("Error: unknown --format %q (json or yaml)", c.String("format")), ExitOperational)
}

func writeRun(c *cli.Context, logger *slog.Logger, run *engine.Run, startTime time.Time) error {
	out := BuildOutput(run, time.Since(startTime))
	if err := common.WriteOutput(c.App.Writer, c.String("format"), out); err != nil {
		logger.Error("failed to write output", "error", err)
		return cli.Exit("", ExitOperational)
	}
	if !run.Passed {
		return cli.Exit("", ExitIssues)
	}
	return nil
}
