package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/supreme-majesty/backdrop-console/pkg/adapters"
	"github.com/supreme-majesty/backdrop-console/pkg/console"
	"github.com/supreme-majesty/backdrop-console/pkg/events"
	"github.com/supreme-majesty/backdrop-console/pkg/services"
	"github.com/supreme-majesty/backdrop-console/pkg/sites"
)

var Version = "dev"

// deps are the collaborators tests replace; zero values use the real ones.
type deps struct {
	workDir  string
	adapter  adapters.SystemAdapter
	database console.DatabaseProber
}

type globalFlags struct {
	site    string
	root    string
	verbose bool
}

func newRootCmd(d deps) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "b",
		Short:         "Backdrop CMS console",
		Long:          `Command-line tool for Backdrop CMS installations, including multisites.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.site, "site", "", "Site to act on in a multisite: a directory name under sites/ or a site URL")
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "Path to the Backdrop root (default: detected from the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug output on stderr")

	rootCmd.AddCommand(newStatusCmd(flags, d))
	rootCmd.AddCommand(newSitesCmd(flags, d))
	rootCmd.AddCommand(newLogCmd(flags, d))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// open builds the console for one invocation and resolves --site.
func open(cmd *cobra.Command, flags *globalFlags, d deps) (*console.Console, sites.Selection, error) {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	bus := events.NewBus()
	if flags.verbose {
		bus.SubscribeAll(func(e events.Event) {
			logger.Debug("event", "type", string(e.Type))
		}, events.RegistryLoaded, events.SiteResolved, events.DatabaseProbed, events.StatusCollected)
	}

	c, err := console.Open(cmd.Context(), console.Options{
		Root:     flags.root,
		WorkDir:  d.workDir,
		Logger:   logger,
		Events:   bus,
		Adapter:  d.adapter,
		Database: d.database,
	})
	if err != nil {
		return nil, sites.Selection{}, err
	}

	sel, err := c.Select(flags.site)
	if err != nil {
		return nil, sites.Selection{}, err
	}
	return c, sel, nil
}

func newStatusCmd(flags *globalFlags, d deps) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an overview of the Backdrop installation and the selected site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sel, err := open(cmd, flags, d)
			if err != nil {
				return err
			}

			report, err := c.Status(cmd.Context(), sel)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return report.RenderJSON(cmd.OutOrStdout())
			case "text", "":
				return report.Render(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	return cmd
}

func newSitesCmd(flags *globalFlags, d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the sites of a multisite installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sel, err := open(cmd, flags, d)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			all := c.Registry.Sites()
			if len(all) == 0 {
				fmt.Fprintln(out, "No sites found: this is a single-site installation.")
				return nil
			}

			width := len("Directory")
			for _, s := range all {
				if len(s.Dir) > width {
					width = len(s.Dir)
				}
			}
			fmt.Fprintf(out, "  %-*s   %s\n", width, "Directory", "URLs")
			for _, s := range all {
				marker := " "
				if sel.Dir() == s.Dir {
					marker = "*"
				}
				urls := "-"
				if len(s.URLs) > 0 {
					urls = strings.Join(s.URLs, ", ")
				}
				fmt.Fprintf(out, "%s %-*s   %s\n", marker, width, s.Dir, urls)
			}
			return nil
		},
	}
}

func newLogCmd(flags *globalFlags, d deps) *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the PHP error log (error_log in .b.yaml or B_ERROR_LOG)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sel, err := open(cmd, flags, d)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries, err := c.Tail(sel, lines)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(out, e.Raw)
			}
			if !follow {
				return nil
			}

			c.Events.Subscribe(events.LogEntry, func(e events.Event) {
				if entry, ok := e.Payload.(services.LogEntryData); ok {
					fmt.Fprintln(out, entry.Raw)
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Follow(ctx, sel)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "F", false, "Keep printing new lines as they are written")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of b",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "b %s\n", Version)
		},
	}
}

func main() {
	if err := newRootCmd(deps{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
