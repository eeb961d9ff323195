package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/TheFlyingBadger/findDuplicateFiles/internal/store"
	findduplicatefiles "github.com/TheFlyingBadger/findDuplicateFiles/pkg"
)

const maxVerbosity = 3

// app holds the loaded configuration shared by the commands
type app struct {
	config *findduplicatefiles.Config
	all    *findduplicatefiles.AllConfig
	logger *findduplicatefiles.Logger
	stdout io.Writer
}

// newApp loads the config file, applies command-line overrides and builds
// the logger
func newApp(options *ParsedOptions, stdout, stderr io.Writer) (*app, error) {
	config, err := findduplicatefiles.LoadConfig(options.GetString("config"))
	if err != nil {
		return nil, err
	}

	overrides := append([]string(nil), options.GetList("set")...)
	if options.IsSet("format") {
		overrides = append(overrides, "output.format:"+options.GetString("format"))
	}
	if options.IsSet("root") {
		overrides = append(overrides, "app.folder_start:"+options.GetString("root"))
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	all := config.GetAllConfig()
	return &app{
		config: config,
		all:    all,
		logger: findduplicatefiles.NewLogger(stderr, verbosity(options, all)),
		stdout: stdout,
	}, nil
}

// verbosity prefers -v over verbose.level; app.debug raises it to debug
func verbosity(options *ParsedOptions, all *findduplicatefiles.AllConfig) int {
	level := all.Verbose.Level
	if options.IsSet("verbose") {
		level = options.GetInt("verbose")
	}
	if all.App.Debug {
		level = max(level, 2)
	}
	return min(level, maxVerbosity)
}

func runInit(configPath string, stdout io.Writer) error {
	if err := findduplicatefiles.SaveDefaultConfig(configPath); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote default configuration to %s\n", configPath)
	return nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	location := a.all.App.DatabasePath
	if a.all.Store.Driver == findduplicatefiles.DriverMySQL {
		location = a.all.Store.DSN
	}
	s, err := store.Open(ctx, a.all.Store.Driver, location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.all.Store.Driver, err)
	}
	return s, nil
}

// scan records a search for root, runs it without holding the store open
// and saves the groups once the search completes. An interrupted search is
// left without an end time.
func (a *app) scan(ctx context.Context, root string) error {
	defer a.logger.Enter()()

	opts, err := a.config.Options(a.logger)
	if err != nil {
		return err
	}
	finder, err := findduplicatefiles.NewFinder(opts)
	if err != nil {
		return err
	}

	// Reject a bad root before anything is written to the store
	inventory, err := findduplicatefiles.NewInventory(root, opts)
	if err != nil {
		return err
	}
	searchRoot := inventory.Root()

	id, err := a.beginSearch(ctx, searchRoot)
	if err != nil {
		return err
	}
	logger := a.logger.With("search", id)

	groups, err := finder.FindDuplicates(ctx, searchRoot)
	if err != nil {
		return fmt.Errorf("search %d failed: %w", id, err)
	}
	results := findduplicatefiles.Assemble(groups, true)

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveResults(ctx, id, results, time.Now()); err != nil {
		return err
	}

	stats := finder.Stats()
	logger.Info("search saved",
		"groups", len(results),
		"files", stats.FilesScanned,
		"skipped", stats.TraversalSkips,
		"read_failures", stats.ReadFailures)

	return findduplicatefiles.WriteReport(a.stdout, results, a.all.Output.Format)
}

// beginSearch creates the search row, removing earlier searches of root
// first when app.delete_prior is set. The store is closed before returning.
func (a *app) beginSearch(ctx context.Context, root string) (int64, error) {
	s, err := a.openStore(ctx)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if a.all.App.DeletePrior {
		removed, err := s.DeletePrevious(ctx, root)
		if err != nil {
			return 0, err
		}
		a.logger.Info("removed previous searches", "root", root, "count", removed)
	}

	id, err := s.CreateSearch(ctx, root, time.Now())
	if err != nil {
		return 0, err
	}
	a.logger.Debug("created search", "id", id, "root", root)
	return id, nil
}

func (a *app) list(ctx context.Context) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.ListSearches(ctx)
	if err != nil {
		return err
	}

	if a.all.Output.Format == findduplicatefiles.FormatJSON {
		if records == nil {
			records = []store.SearchRecord{}
		}
		return writeJSON(a.stdout, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(a.stdout, "No searches recorded")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOT\tSTARTED\tFINISHED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.ID, rec.Root, formatTime(&rec.Start), formatTime(rec.End))
	}
	return tw.Flush()
}

func (a *app) show(ctx context.Context, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: invalid search id '%s'", errUsage, rawID)
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	search, err := s.LoadSearch(ctx, id)
	if errors.Is(err, store.ErrSearchNotFound) {
		return fmt.Errorf("no search with id %d", id)
	}
	if err != nil {
		return err
	}

	switch a.all.Output.Format {
	case findduplicatefiles.FormatJSON:
		if search.Groups == nil {
			search.Groups = []findduplicatefiles.ResultGroup{}
		}
		return writeJSON(a.stdout, search)
	case findduplicatefiles.FormatHuman:
		fmt.Fprintf(a.stdout, "Search %d of %s\n", search.ID, search.Root)
		fmt.Fprintf(a.stdout, "Started %s, finished %s\n\n", formatTime(&search.Start), formatTime(search.End))
		if !search.Finished() {
			fmt.Fprintln(a.stdout, "Search did not complete")
			return nil
		}
	}
	return findduplicatefiles.WriteReport(a.stdout, search.Groups, a.all.Output.Format)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
