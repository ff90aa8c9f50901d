package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wonk/internal/config"
	"wonk/internal/daemon"
	"wonk/internal/index"
	"wonk/internal/logging"
	"wonk/internal/output"
	"wonk/internal/parse"
	"wonk/internal/rank"
	"wonk/internal/repos"
	"wonk/internal/router"
	"wonk/internal/scan"
	searchfiles "wonk/internal/search/files"
	"wonk/internal/store"
	"wonk/internal/wonkerr"
	"wonk/internal/wonktype"
)

const version = "0.1.0"

var logger *slog.Logger

func main() {
	logger = logging.Default()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(wonkerr.ExitUsage)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "sym":
		err = runSym(os.Args[2:])
	case "ref":
		err = runRef(os.Args[2:])
	case "sig":
		err = runSig(os.Args[2:])
	case "ls":
		err = runLs(os.Args[2:])
	case "file":
		err = runFile(os.Args[2:])
	case "deps":
		err = runDeps(os.Args[2:])
	case "rdeps":
		err = runRdeps(os.Args[2:])
	case "index":
		err = runIndex(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "daemon":
		err = runDaemon(os.Args[2:])
	case "repos":
		err = runRepos(os.Args[2:])
	case "version":
		fmt.Printf("wonk v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		err = wonkerr.New(wonkerr.UsageError, fmt.Sprintf("unknown command %q", os.Args[1]))
	}

	if err != nil {
		output.PrintError(err.Error())
		if hint := wonkerr.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(wonkerr.ExitCode(err))
	}
}

// repoAndDB resolves the repo root from cwd (or an explicit path),
// opens its index if one exists (store.OpenExisting: no schema is
// created, but the handle is an ordinary read-write one, not a
// read-only one), and auto-spawns the daemon
// the first time a query finds a live index but no running daemon —
// per §4.9's auto-spawn rule.
func repoAndDB(path string, local bool) (string, *store.DB, error) {
	start := path
	if start == "" {
		start = "."
	}
	repoRoot, err := store.FindRepoRoot(start)
	if err != nil {
		return "", nil, err
	}

	indexPath, ok := store.FindExistingIndex(repoRoot)
	if !ok {
		return repoRoot, nil, nil
	}

	db, err := store.OpenExisting(indexPath)
	if err != nil {
		return repoRoot, nil, err
	}

	indexDir := filepath.Dir(indexPath)
	if !daemon.IsRunning(indexDir) {
		if _, err := daemon.Spawn(repoRoot, local); err != nil {
			logger.Warn("auto-spawn daemon failed", "error", err)
		}
	} else {
		warnIfHeartbeatStale(db)
	}

	return repoRoot, db, nil
}

// warnIfHeartbeatStale logs a side-channel hint when the attached
// daemon's last recorded heartbeat is older than 3x its interval,
// so a wedged daemon's results don't look silently authoritative to
// every query command, not just `wonk status`.
func warnIfHeartbeatStale(db *store.DB) {
	updated, ok := db.DaemonStatusUpdatedAt("state")
	if !ok {
		return
	}
	if age := time.Now().Unix() - updated; age > 3*heartbeatStaleSeconds {
		logger.Warn("daemon heartbeat is stale; results may be out of date",
			"age_seconds", age, "hint", "wonk daemon stop && wonk daemon start")
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	local := fs.Bool("local", false, "store the index under <repo>/.wonk instead of the central cache")
	force := fs.Bool("force", false, "rebuild even if an index already exists")
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	repoRoot, err := store.FindRepoRoot(path)
	if err != nil {
		return err
	}

	if _, ok := store.FindExistingIndex(repoRoot); ok && !*force {
		logger.Info("index already exists", "repo", repoRoot, "hint", "pass --force to rebuild")
		return nil
	}

	indexPath, err := store.IndexPathFor(repoRoot, *local)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return wonkerr.Wrap(wonkerr.IoError, "creating index directory", err)
	}

	db, err := store.Open(indexPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return err
	}

	b := index.New(repoRoot, db, int64(cfg.Index.MaxFileSizeKB)*1024, logger)
	stats, err := b.Full(context.Background())
	if err != nil {
		return err
	}
	if err := store.WriteMeta(indexPath, repoRoot, stats.Languages); err != nil {
		return wonkerr.Wrap(wonkerr.IoError, "writing meta.json", err)
	}

	logger.Info("index built", "files", stats.FilesScanned, "symbols", stats.Symbols,
		"references", stats.References, "duration", stats.Duration)

	if _, err := daemon.Spawn(repoRoot, *local); err != nil {
		logger.Warn("starting daemon", "error", err)
	}
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	jsonMode := fs.Bool("json", false, "emit NDJSON instead of grep-style text")
	regexMode := fs.Bool("regex", false, "treat pattern as a regular expression")
	ignoreCase := fs.Bool("ignore-case", false, "case-insensitive match")
	budget := fs.Int("budget", 0, "truncate output to approximately this many tokens (0 = unbounded)")
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "search requires a pattern")
	}
	pattern := fs.Arg(0)
	path := "."
	if fs.NArg() > 1 {
		path = fs.Arg(1)
	}

	repoRoot, db, err := repoAndDB(path, *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var results []rank.Result
	err = scan.Scan(repoRoot, scan.Options{Pattern: pattern, RegexMode: *regexMode, CaseInsensitive: *ignoreCase}, func(m scan.Match) {
		results = append(results, rank.Result{File: m.File, Line: m.Line, Content: m.Content})
	})
	if err != nil {
		return wonkerr.Wrap(wonkerr.QueryFailed, "scanning", err)
	}

	var b *rank.Budget
	if *budget > 0 {
		b = rank.NewBudget(*budget)
	}

	engaged := db != nil && rank.ShouldEngage(db, pattern)
	var out rank.SmartResult
	if engaged {
		out = rank.RankSearch(db, results, b)
	} else {
		out = rank.RankSearch(nil, results, b)
	}

	f := output.New(os.Stdout, *jsonMode, output.ResolveColor(""))
	f.SetHighlight(pattern, *regexMode, *ignoreCase)
	for _, g := range out.Groups {
		output.PrintCategoryHeader(g.Marker, *jsonMode || !engaged)
		for _, a := range g.Results {
			annotation := ""
			if a.OtherLocations == 1 {
				annotation = "(+1 other location)"
			} else if a.OtherLocations > 1 {
				annotation = fmt.Sprintf("(+%d other locations)", a.OtherLocations)
			}
			f.FormatSearchResult(output.SearchRecord{
				File: a.Result.File, Line: a.Result.Line, Content: a.Result.Content,
				Annotation: annotation,
			})
		}
	}
	if out.TruncatedCount > 0 && b != nil {
		if *jsonMode {
			f.FormatTruncationMeta(output.TruncationMeta{TruncatedCount: out.TruncatedCount, BudgetTokens: *budget, UsedTokens: b.Used()})
		} else {
			output.PrintBudgetSummary(out.TruncatedCount, *budget)
		}
	}
	return nil
}

func runSym(args []string) error {
	fs := flag.NewFlagSet("sym", flag.ExitOnError)
	kindFlag := fs.String("kind", "", "filter by symbol kind")
	exact := fs.Bool("exact", false, "require an exact name match")
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "sym requires a name")
	}
	name := fs.Arg(0)

	var kind wonktype.SymbolKind
	if *kindFlag != "" {
		k, err := wonktype.ParseKind(*kindFlag)
		if err != nil {
			return wonkerr.Wrap(wonkerr.UsageError, "invalid --kind", err)
		}
		kind = k
	}

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	symbols, err := r.Symbols(name, kind, *exact)
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, s := range symbols {
		f.FormatSymbol(output.SymbolRecord{
			Name: s.Name, Kind: string(s.Kind), File: s.File, Line: s.Line, Col: s.Col,
			EndLine: s.EndLine, Scope: s.Scope, Signature: s.Signature, Language: s.Language,
		})
	}
	return nil
}

func runRef(args []string) error {
	fs := flag.NewFlagSet("ref", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "ref requires a name")
	}
	name := fs.Arg(0)
	paths := fs.Args()[1:]

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	refs, err := r.References(name, paths)
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, ref := range refs {
		f.FormatReference(output.RefRecord{Name: ref.Name, File: ref.File, Line: ref.Line, Col: ref.Col, Context: ref.Context})
	}
	return nil
}

func runSig(args []string) error {
	fs := flag.NewFlagSet("sig", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "sig requires a name")
	}
	name := fs.Arg(0)

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	sigs, err := r.Signatures(name)
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, s := range sigs {
		f.FormatSignature(output.SignatureRecord{Name: s.Name, File: s.File, Line: s.Line, Signature: s.Signature, Language: s.Language})
	}
	return nil
}

func runLs(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "ls requires a file path")
	}
	relPath := fs.Arg(0)

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	symbols, err := r.SymbolsInFile(relPath, func(relPath string) ([]wonktype.Symbol, error) {
		content, err := os.ReadFile(filepath.Join(repoRoot, relPath))
		if err != nil {
			return nil, err
		}
		result, ok := parse.File(relPath, content)
		if !ok {
			return nil, wonkerr.New(wonkerr.UnsupportedLanguage, "no grammar for "+relPath)
		}
		return result.Symbols, nil
	})
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, s := range symbols {
		f.FormatLsSymbol(output.LsSymbolRecord{Name: s.Name, Kind: string(s.Kind), File: s.File, Line: s.Line, Scope: s.Scope})
	}
	return nil
}

func runFile(args []string) error {
	fs := flag.NewFlagSet("file", flag.ExitOnError)
	start := fs.Int("start", 0, "first line to print (1-indexed, 0 = from start)")
	end := fs.Int("end", 0, "last line to print (1-indexed, 0 = to end)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "file requires a path")
	}

	result, err := searchfiles.GetFile(fs.Arg(0), *start, *end)
	if err != nil {
		return wonkerr.Wrap(wonkerr.IoError, "reading file", err)
	}
	fmt.Print(result.Content)
	return nil
}

func runDeps(args []string) error {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "deps requires a file path")
	}
	relPath := fs.Arg(0)

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	targets, err := r.Deps(relPath)
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, t := range targets {
		f.FormatDep(output.DepRecord{File: relPath, DependsOn: t})
	}
	return nil
}

func runRdeps(args []string) error {
	fs := flag.NewFlagSet("rdeps", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return wonkerr.New(wonkerr.UsageError, "rdeps requires a file path")
	}
	relPath := fs.Arg(0)

	repoRoot, db, err := repoAndDB(".", *local)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	r := router.New(db, repoRoot)
	dependents, err := r.Rdeps(relPath)
	if err != nil {
		return err
	}

	f := output.New(os.Stdout, false, output.ResolveColor(""))
	for _, dep := range dependents {
		f.FormatDep(output.DepRecord{File: dep, DependsOn: relPath})
	}
	return nil
}

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	force := fs.Bool("force", false, "wipe and rebuild from scratch")
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	repoRoot, err := store.FindRepoRoot(path)
	if err != nil {
		return err
	}

	indexPath, err := store.IndexPathFor(repoRoot, *local)
	if err != nil {
		return err
	}
	if _, ok := store.FindExistingIndex(repoRoot); !ok {
		if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
			return wonkerr.Wrap(wonkerr.IoError, "creating index directory", err)
		}
	}

	// A full rebuild needs the sole writer lock; stop any running
	// daemon first per §5's CLI/daemon concurrency contract.
	indexDir := filepath.Dir(indexPath)
	if *force && daemon.IsRunning(indexDir) {
		if err := daemon.Stop(repoRoot, *local); err != nil {
			logger.Warn("stopping daemon before rebuild", "error", err)
		}
	}

	db, err := store.Open(indexPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return err
	}
	b := index.New(repoRoot, db, int64(cfg.Index.MaxFileSizeKB)*1024, logger)

	var stats index.Stats
	if *force {
		stats, err = b.Full(context.Background())
	} else {
		stats, err = b.Incremental(context.Background())
	}
	if err != nil {
		return err
	}
	if err := store.WriteMeta(indexPath, repoRoot, stats.Languages); err != nil {
		return wonkerr.Wrap(wonkerr.IoError, "writing meta.json", err)
	}

	logger.Info("index updated", "changed", stats.FilesChanged, "removed", stats.FilesRemoved,
		"symbols", stats.Symbols, "duration", stats.Duration)

	if *force {
		if _, err := daemon.Spawn(repoRoot, *local); err != nil {
			logger.Warn("restarting daemon", "error", err)
		}
	}
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	local := fs.Bool("local", false, "use the repo-local index if present")
	fs.Parse(args)
	_ = local

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	repoRoot, err := store.FindRepoRoot(path)
	if err != nil {
		return err
	}

	indexPath, ok := store.FindExistingIndex(repoRoot)
	if !ok {
		fmt.Println("no index for this repository (run `wonk init`)")
		return nil
	}

	db, err := store.OpenExisting(indexPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return err
	}
	meta, _ := store.ReadMeta(indexPath)

	indexDir := filepath.Dir(indexPath)
	attached := daemon.IsRunning(indexDir)

	fmt.Printf("repo:       %s\n", repoRoot)
	fmt.Printf("index:      %s\n", indexPath)
	fmt.Printf("files:      %d\n", stats.Files)
	fmt.Printf("symbols:    %d\n", stats.Symbols)
	fmt.Printf("references: %d\n", stats.References)
	fmt.Printf("languages:  %v\n", meta.Languages)
	fmt.Printf("daemon:     %v\n", attached)

	if attached {
		if updated, ok := db.DaemonStatusUpdatedAt("state"); ok {
			fmt.Printf("last activity: %s\n", output.HumanTime(updated))
			if time.Now().Unix()-updated > 3*heartbeatStaleSeconds {
				fmt.Println("warning: daemon heartbeat is stale; consider `wonk daemon stop && wonk daemon start`")
			}
		}
	}
	return nil
}

const heartbeatStaleSeconds = 30

func runDaemon(args []string) error {
	if len(args) < 1 {
		return wonkerr.New(wonkerr.UsageError, "daemon requires a subcommand: start|stop|status|run")
	}

	switch args[0] {
	case "start":
		fs := flag.NewFlagSet("daemon start", flag.ExitOnError)
		local := fs.Bool("local", false, "use the repo-local index")
		fs.Parse(args[1:])
		path := "."
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		repoRoot, err := store.FindRepoRoot(path)
		if err != nil {
			return err
		}
		pid, err := daemon.Spawn(repoRoot, *local)
		if err != nil {
			return err
		}
		fmt.Printf("daemon started (pid %d)\n", pid)
		return nil

	case "stop":
		fs := flag.NewFlagSet("daemon stop", flag.ExitOnError)
		local := fs.Bool("local", false, "use the repo-local index")
		fs.Parse(args[1:])
		path := "."
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		repoRoot, err := store.FindRepoRoot(path)
		if err != nil {
			return err
		}
		return daemon.Stop(repoRoot, *local)

	case "status":
		fs := flag.NewFlagSet("daemon status", flag.ExitOnError)
		local := fs.Bool("local", false, "use the repo-local index")
		fs.Parse(args[1:])
		path := "."
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		repoRoot, err := store.FindRepoRoot(path)
		if err != nil {
			return err
		}
		status, running, err := daemon.Status(repoRoot, *local)
		if err != nil {
			return err
		}
		if !running {
			fmt.Println("not running")
			return nil
		}
		fmt.Printf("pid:     %d\n", status.PID)
		fmt.Printf("uptime:  %s\n", output.HumanTime(status.UptimeStart))
		fmt.Printf("queued:  %d\n", status.Queued)
		if status.LastError != "" {
			fmt.Printf("error:   %s\n", status.LastError)
		}
		return nil

	case "run":
		fs := flag.NewFlagSet("daemon run", flag.ExitOnError)
		repo := fs.String("repo", "", "repository root to watch")
		local := fs.Bool("local", false, "use the repo-local index")
		fs.Parse(args[1:])
		if *repo == "" {
			return wonkerr.New(wonkerr.UsageError, "daemon run requires --repo")
		}
		return daemon.Run(context.Background(), *repo, *local, logger)

	default:
		return wonkerr.New(wonkerr.UsageError, fmt.Sprintf("unknown daemon subcommand %q", args[0]))
	}
}

func runRepos(args []string) error {
	if len(args) < 1 {
		return wonkerr.New(wonkerr.UsageError, "repos requires a subcommand: list|clean")
	}
	switch args[0] {
	case "list":
		entries, err := repos.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			status := ""
			if e.Stale {
				status = " (stale)"
			}
			fmt.Printf("%s  %s  %s  %s%s\n", e.Hash, e.RepoPath, e.Created, output.HumanBytes(e.SizeBytes), status)
		}
		return nil
	case "clean":
		removed, reclaimed, err := repos.Clean()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d stale index bundle(s), reclaimed %s\n", removed, output.HumanBytes(reclaimed))
		return nil
	default:
		return wonkerr.New(wonkerr.UsageError, fmt.Sprintf("unknown repos subcommand %q", args[0]))
	}
}

func printUsage() {
	fmt.Println(`wonk - structure-aware code search for LLM coding agents

Usage:
  wonk init [path] [--local] [--force]
  wonk search <pattern> [path] [--regex] [--ignore-case] [--json] [--budget N]
  wonk sym <name> [--kind K] [--exact]
  wonk ref <name> [paths...]
  wonk sig <name>
  wonk ls <file>
  wonk file <path> [--start N] [--end N]
  wonk deps <file>
  wonk rdeps <file>
  wonk index [path] [--force]
  wonk status [path]
  wonk daemon start|stop|status [path] [--local]
  wonk repos list|clean
  wonk version`)
}
