package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/content-qa/internal/db"
	"github.com/dtnitsch/content-qa/internal/serve"
	"github.com/dtnitsch/content-qa/internal/verify"
	"github.com/dtnitsch/content-qa/pkg/help"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "content-qa",
		Usage: "Verify live pages against their source-of-truth document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "project config file (YAML or JSON)"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "Check a single URL, optionally against a document",
				ArgsUsage: "[url]",
				Flags:     verify.VerifyFlags(),
				Action:    verify.VerifyAction,
			},
			{
				Name:      "project",
				Usage:     "Check every live page of a configured project",
				ArgsUsage: "<project-id>",
				Flags:     verify.ProjectFlags(),
				Action:    verify.ProjectAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the BugHerd webhook listener",
				Flags:  serve.Flags(),
				Action: serve.ServeAction,
			},
			{
				Name:  "cache",
				Usage: "Inspect the source-of-truth document cache",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List cached documents",
						Flags:  db.ListFlags(),
						Action: db.ListAction,
					},
					{
						Name:      "show",
						Usage:     "Print the cached text of a document",
						ArgsUsage: "<doc-url>",
						Action:    db.ShowAction,
					},
					{
						Name:   "prune",
						Usage:  "Drop stale cached documents",
						Flags:  db.PruneFlags(),
						Action: db.PruneAction,
					},
				},
			},
			{
				Name:  "coldstart",
				Usage: "Print a quick-start reference",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
