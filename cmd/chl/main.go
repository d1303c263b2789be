package main

import (
	"fmt"
	"os"
	"strconv"

	ucli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/bunchhieng/chapterlist/internal/app"
	"github.com/bunchhieng/chapterlist/internal/chapteropts"
	"github.com/bunchhieng/chapterlist/internal/cli"
	"github.com/bunchhieng/chapterlist/internal/storage"
	"github.com/bunchhieng/chapterlist/internal/tui"
)

var version = "dev"

// env holds what every command needs once the global flags are parsed.
type env struct {
	logger   *zap.Logger
	storage  storage.Storage
	options  *chapteropts.Store
	commands *cli.Commands
}

func main() {
	e := &env{}

	a := &ucli.App{
		Name:    "chl",
		Usage:   "Chapter list with persistent per-manga filter and sort options",
		Version: version,
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "db-path", Usage: "path to database file (default: platform config directory)", EnvVars: []string{"CHL_DB_PATH"}},
			&ucli.StringFlag{Name: "config", Usage: "path to config.toml (default: platform config directory)", EnvVars: []string{"CHL_CONFIG"}},
			&ucli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*ucli.Command{
			{
				Name:      "add",
				Usage:     "Append a chapter to a manga",
				ArgsUsage: "<manga-id> <name>",
				Flags: []ucli.Flag{
					&ucli.Float64Flag{Name: "number", Aliases: []string{"n"}, Usage: "chapter number"},
					&ucli.Int64Flag{Name: "fetched-at", Usage: "fetch time as unix seconds (default: now)"},
				},
				Action: func(c *ucli.Context) error {
					if c.NArg() < 1 {
						return usage(c)
					}
					return e.commands.Add(c.Args().Get(0), c.Args().Get(1), c.Float64("number"), c.Int64("fetched-at"))
				},
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List the chapters of a manga using its stored options",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.List(mangaID)
				}),
			},
			{
				Name:      "mark",
				Usage:     "Set the read, downloaded or bookmarked flag of a chapter",
				ArgsUsage: "<id> <read|downloaded|bookmarked> [true|false]",
				Action: func(c *ucli.Context) error {
					if c.NArg() < 2 {
						return usage(c)
					}
					id, err := cli.ParseID(c.Args().Get(0))
					if err != nil {
						return err
					}
					field, err := storage.ParseStateField(c.Args().Get(1))
					if err != nil {
						return err
					}
					value := true
					if c.NArg() > 2 {
						if value, err = strconv.ParseBool(c.Args().Get(2)); err != nil {
							return fmt.Errorf("invalid value %q: want true or false", c.Args().Get(2))
						}
					}
					return e.commands.Mark(id, field, value)
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete one or more chapters",
				ArgsUsage: "<id> [id...]",
				Action: func(c *ucli.Context) error {
					if c.NArg() == 0 {
						return usage(c)
					}
					ids := make([]string, 0, c.NArg())
					for _, arg := range c.Args().Slice() {
						id, err := cli.ParseID(arg)
						if err != nil {
							return err
						}
						ids = append(ids, id)
					}
					return e.commands.Remove(ids...)
				},
			},
			{
				Name:      "filter",
				Usage:     "Set a filter dimension",
				ArgsUsage: "<manga-id> <unread|downloaded|bookmarked> <true|false|any>",
				Action: func(c *ucli.Context) error {
					if c.NArg() < 3 {
						return usage(c)
					}
					return e.commands.Filter(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
				},
			},
			{
				Name:      "sort",
				Usage:     "Select a sort mode, or print the available modes",
				ArgsUsage: "<manga-id> [source|fetchedAt]",
				Action: withManga(func(mangaID string, c *ucli.Context) error {
					return e.commands.Sort(mangaID, c.Args().Get(1))
				}),
			},
			{
				Name:      "reverse",
				Usage:     "Flip the list direction",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.Reverse(mangaID)
				}),
			},
			{
				Name:      "numbers",
				Usage:     "Toggle between chapter names and chapter numbers",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.Numbers(mangaID)
				}),
			},
			{
				Name:      "options",
				Usage:     "Print the stored options of a manga",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.Options(mangaID)
				}),
			},
			{
				Name:      "dispatch",
				Usage:     "Apply a raw options action",
				ArgsUsage: "<manga-id> <filter|sortBy|sortReverse|showChapterNumber> [args...]",
				Action: func(c *ucli.Context) error {
					if c.NArg() < 2 {
						return usage(c)
					}
					args := c.Args().Slice()
					return e.commands.Dispatch(args[0], args[1], args[2:]...)
				},
			},
			{
				Name:      "clear",
				Usage:     "Unset every filter of a manga",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.Clear(mangaID)
				}),
			},
			{
				Name:      "reset",
				Usage:     "Delete the stored options of a manga",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return e.commands.Reset(mangaID)
				}),
			},
			{
				Name:      "export",
				Usage:     "Export all chapters as JSON to a file or stdout",
				ArgsUsage: "[file.json]",
				Action: func(c *ucli.Context) error {
					return e.commands.Export(c.Args().First())
				},
			},
			{
				Name:      "import",
				Usage:     "Import chapters from a JSON file",
				ArgsUsage: "<file.json>",
				Action: func(c *ucli.Context) error {
					if c.NArg() == 0 {
						return usage(c)
					}
					return e.commands.Import(c.Args().First())
				},
			},
			{
				Name:      "tui",
				Usage:     "Browse the chapters of a manga interactively",
				ArgsUsage: "<manga-id>",
				Action: withManga(func(mangaID string, _ *ucli.Context) error {
					return tui.Run(e.storage, e.options, mangaID)
				}),
			},
			{
				Name:  "version",
				Usage: "Show version",
				Action: func(c *ucli.Context) error {
					fmt.Fprintf(c.App.Writer, "chl version %s\n", version)
					return nil
				},
			},
		},
	}

	if err := a.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup applies defaults, then config.toml, then flags.
func (e *env) setup(c *ucli.Context) error {
	configPath := c.String("config")
	if configPath == "" {
		var err error
		if configPath, err = app.DefaultConfigPath(); err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if c.IsSet("db-path") {
		cfg.Storage.Path = c.String("db-path")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	if e.logger, err = app.NewLogger(cfg.Log.Level); err != nil {
		return err
	}

	if e.storage, err = app.NewStorage(cfg.Storage.Path); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	e.logger.Debug("storage opened", zap.String("path", cfg.Storage.Path))

	e.options = chapteropts.NewStore(e.storage, e.logger.Named("options"))
	e.commands = cli.NewCommands(e.storage, e.options, c.App.Writer)
	return nil
}

func (e *env) teardown(*ucli.Context) error {
	if e.storage != nil {
		e.storage.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return nil
}

func withManga(fn func(mangaID string, c *ucli.Context) error) ucli.ActionFunc {
	return func(c *ucli.Context) error {
		if c.NArg() == 0 {
			return usage(c)
		}
		return fn(c.Args().First(), c)
	}
}

func usage(c *ucli.Context) error {
	return fmt.Errorf("usage: chl %s %s", c.Command.Name, c.Command.ArgsUsage)
}
