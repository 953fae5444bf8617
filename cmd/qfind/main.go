// Command qfind searches for files by name.
//
// Usage:
//
//	qfind [-d DBPATH] [-i] [-r] [-u] [-h] [-v] PATTERN...
//
// The index is memory-resident per process: every invocation builds it from
// the search root (QFIND_ROOT, defaulting to /) before answering. -d is
// reserved for a future on-disk serializer and is currently ignored.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/wizenheimer/qfind"
)

const version = "1.0.0"

func usage() {
	fmt.Printf("Usage: %s [OPTION]... PATTERN...\n", os.Args[0])
	fmt.Println("Quickly search for files by name.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -d DBPATH     use DBPATH as database (reserved)")
	fmt.Println("  -i            ignore case distinctions")
	fmt.Println("  -r            pattern is a regular expression")
	fmt.Println("  -u            update the database")
	fmt.Println("  -h            display this help")
	fmt.Println("  -v            display version information")
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("qfind", flag.ContinueOnError)
	fs.Usage = usage

	var (
		dbPath     string
		ignoreCase bool
		useRegex   bool
		update     bool
		help       bool
		showVer    bool
	)
	fs.StringVar(&dbPath, "d", "", "database path")
	fs.BoolVar(&ignoreCase, "i", false, "ignore case")
	fs.BoolVar(&useRegex, "r", false, "regex pattern")
	fs.BoolVar(&update, "u", false, "update the database")
	fs.BoolVar(&help, "h", false, "help")
	fs.BoolVar(&showVer, "v", false, "version")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}
	if help {
		usage()
		return 0
	}
	if showVer {
		fmt.Printf("qfind %s\n", version)
		return 0
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	cfg, err := qfind.LoadConfig("")
	if err != nil {
		logger.Error().Err(err).Msg("loading configuration")
		return 1
	}

	root := os.Getenv("QFIND_ROOT")
	if root == "" {
		root = "/"
	}

	ix, err := qfind.NewWithLogger(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("initializing index")
		return 1
	}
	defer ix.Close()

	count, err := ix.Build(root)
	if err != nil {
		logger.Error().Err(err).Str("root", root).Msg("building index")
		return 1
	}

	if update {
		fmt.Printf("Indexed %d files under %s.\n", count, root)
		return 0
	}

	patterns := fs.Args()
	if len(patterns) == 0 {
		fmt.Fprintln(os.Stderr, "No search pattern provided")
		usage()
		return 1
	}

	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())

	printed := make(map[string]bool)
	var matched bool
	for _, pattern := range patterns {
		results, err := ix.NewSearch().
			WithQuery(pattern).
			WithCaseInsensitive(ignoreCase).
			WithRegex(useRegex).
			WithUser(uid, gid).
			Execute()
		if err != nil {
			logger.Error().Err(err).Str("pattern", pattern).Msg("search failed")
			return 1
		}

		ids := make([]qfind.FileID, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		for _, path := range ix.ResolvePaths(ids) {
			if path == "" || printed[path] {
				continue
			}
			printed[path] = true
			matched = true
			fmt.Println(path)
		}
	}

	if !matched {
		fmt.Println("No matching files found.")
	}
	return 0
}
