package main

import (
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/search"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	runFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Preview what would be created without writing anything",
		},
		&cli.BoolFlag{
			Name:  "auto-promote",
			Usage: "Create entities and relationships as DRAFT instead of RAW",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Replace the entities of an already ingested source",
		},
	}

	return &cli.App{
		Name:  "kgingest",
		Usage: "Turn conversation transcripts into a knowledge graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: ./kgingest.yaml or ~/.config/kgingest/kgingest.yaml)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides db.path)",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Owner of created entities (overrides owner.id)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write run metrics in Prometheus text format to this file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one conversation file",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags:     runFlags,
			},
			{
				Name:      "batch",
				Usage:     "Ingest every .md file in a directory",
				ArgsUsage: "<dir>",
				Action:    batchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "archive-dir",
						Usage: "Move successfully ingested files here (overrides batch.archiveDir)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of files prepared in parallel (overrides batch.concurrency)",
					},
				}, runFlags...),
			},
			{
				Name:      "ingest-csv",
				Usage:     "Ingest a CSV export with one prompt and response per row",
				ArgsUsage: "<file.csv>",
				Action:    ingestCSVCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "Directory for the rendered conversations (default: <file>-conversations next to the CSV)",
					},
					&cli.BoolFlag{
						Name:  "no-update",
						Usage: "Do not mark ingested rows in the CSV",
					},
				}, runFlags...),
			},
			{
				Name:      "split",
				Usage:     "Split a monthly dump into one file per conversation",
				ArgsUsage: "<dump.md>",
				Action:    splitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output directory",
						Value: "processed",
					},
				},
			},
			{
				Name:   "promote",
				Usage:  "Move an entity or relationship to a later semantic state",
				Action: promoteCommand,
				Flags: append(targetFlags(),
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target state (DRAFT, COOKED, CANONICAL)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "reason",
						Usage: "Reason recorded in the history",
					},
					&cli.StringFlag{
						Name:  "actor",
						Usage: "Actor ID recorded in the history (overrides actor.id)",
					},
				),
			},
			{
				Name:   "history",
				Usage:  "Show the state transitions of an entity or relationship",
				Action: historyCommand,
				Flags:  targetFlags(),
			},
			{
				Name:      "search",
				Usage:     "Search entities by name and description",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Only return entities in this category (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "state",
						Usage: "Only return entities in this semantic state (repeatable)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: search.DefaultLimit,
					},
					&cli.BoolFlag{
						Name:  "all-owners",
						Usage: "Search entities of every owner",
					},
				},
			},
			{
				Name:      "chunks",
				Usage:     "Show how a conversation file is chunked",
				ArgsUsage: "<file>",
				Action:    chunksCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "content",
						Usage: "Print each chunk's content",
					},
				},
			},
			{
				Name:   "sources",
				Usage:  "List ingested sources",
				Action: sourcesCommand,
			},
			{
				Name:      "forget",
				Usage:     "Remove a source's entities, their relationships and its run record",
				ArgsUsage: "<file>",
				Action:    forgetCommand,
			},
		},
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Uint64Flag{
			Name:  "entity",
			Usage: "Entity ID",
		},
		&cli.Uint64Flag{
			Name:  "relationship",
			Usage: "Relationship ID",
		},
	}
}

// requestFromFlags builds an ingestion request template from run flags.
func requestFromFlags(c *cli.Context) ingestion.Request {
	return ingestion.Request{
		DryRun:      c.Bool("dry-run"),
		AutoPromote: c.Bool("auto-promote"),
		Force:       c.Bool("force"),
	}
}
