// Command finddups finds byte-identical files under a directory and records
// every search in a store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	findduplicatefiles "github.com/TheFlyingBadger/findDuplicateFiles/pkg"
)

// Version is set at link time with -ldflags "-X main.Version=..."
var Version = "dev"

// errUsage marks errors caused by the command line itself
var errUsage = errors.New("usage error")

func main() {
	ctx, cancel := setupSignalHandler(context.Background(), os.Stderr)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func newGlobalOptions() *ParsedOptions {
	options := NewParsedOptions()
	options.DefineOption("help", "h", OptionTypeBool, "false", "Show help message")
	options.DefineOption("version", "", OptionTypeBool, "false", "Show version information")
	options.DefineOption("verbose", "v", OptionTypeCount, "0", "Enable verbose output (can be repeated for more verbosity)")
	options.DefineOption("config", "c", OptionTypeString, findduplicatefiles.DefaultConfigFile, "Configuration file")
	options.DefineOption("format", "f", OptionTypeString, "", "Output format (human|json|fdupes)")
	options.DefineOption("root", "r", OptionTypeString, "", "Directory to search (overrides app.folder_start)")
	options.DefineOption("set", "s", OptionTypeList, "", "Override a config setting, e.g. --set prefix_size:128K")
	return options
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	options := newGlobalOptions()
	if err := options.Parse(argv); err != nil {
		fmt.Fprintf(stderr, "finddups: %v\n", err)
		fmt.Fprintf(stderr, "Try 'finddups --help' for more information.\n")
		return 2
	}

	if options.GetBool("version") {
		fmt.Fprintf(stdout, "finddups %s\n", Version)
		return 0
	}

	args := options.GetArgs()
	if options.GetBool("help") || len(args) == 0 || args[0] == "help" {
		showHelp(stdout, options)
		return 0
	}

	if err := dispatch(ctx, options, args, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "finddups: %v\n", err)
		switch {
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "Try 'finddups --help' for more information.\n")
			return 2
		case errors.Is(err, context.Canceled):
			return 130
		}
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, options *ParsedOptions, args []string, stdout, stderr io.Writer) error {
	command := args[0]

	// init runs before the config is loaded since it creates it
	if command == "init" {
		if len(args) > 1 {
			return fmt.Errorf("%w: init takes no arguments", errUsage)
		}
		return runInit(options.GetString("config"), stdout)
	}

	app, err := newApp(options, stdout, stderr)
	if err != nil {
		return err
	}

	switch command {
	case "scan":
		if len(args) > 2 {
			return fmt.Errorf("%w: scan takes at most one root", errUsage)
		}
		root := app.all.App.FolderStart
		if len(args) == 2 {
			root = args[1]
		}
		return app.scan(ctx, root)

	case "list":
		if len(args) > 1 {
			return fmt.Errorf("%w: list takes no arguments", errUsage)
		}
		return app.list(ctx)

	case "show":
		if len(args) != 2 {
			return fmt.Errorf("%w: show requires a search id", errUsage)
		}
		return app.show(ctx, args[1])

	default:
		return fmt.Errorf("%w: unknown command '%s'", errUsage, command)
	}
}

func showHelp(w io.Writer, options *ParsedOptions) {
	fmt.Fprintf(w, "finddups - find byte-identical files\n\n")
	fmt.Fprintf(w, "Usage: finddups [OPTIONS] <command> [ARGS]\n\n")

	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  scan [root]   Search root (default app.folder_start) and store the result\n")
	fmt.Fprintf(w, "  list          List stored searches\n")
	fmt.Fprintf(w, "  show <id>     Show the groups of a stored search\n")
	fmt.Fprintf(w, "  init          Write a default configuration file\n")
	fmt.Fprintf(w, "  help          Show this message\n\n")

	options.ShowUsage(w)

	fmt.Fprintf(w, "\nExit status: 0 on success, 1 on failure, 2 on usage errors, 130 when interrupted.\n")
}
