package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/layout"
	"github.com/wippyai/typegraph/store/filestore"
	"github.com/wippyai/typegraph/types"
	"github.com/wippyai/typegraph/witimport"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: typegraph [flags] import <file.wit.json>")
	fmt.Fprintln(os.Stderr, "       typegraph [flags] types")
	fmt.Fprintln(os.Stderr, "       typegraph [flags] show <type>")
	fmt.Fprintln(os.Stderr, "       typegraph [flags] find <type> <bitOffset>")
	fmt.Fprintln(os.Stderr, "       typegraph [flags] check")
	fmt.Fprintln(os.Stderr, "       typegraph [flags] watch  (file store only)")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	var (
		storeKind = flag.String("store", "file", "Backend: file or neo4j")
		path      = flag.String("path", filestore.DefaultPath, "Snapshot file for the file backend")
		neo4jURI  = flag.String("neo4j-uri", "neo4j://localhost:7687", "Neo4j connection URI")
		neo4jUser = flag.String("neo4j-user", "neo4j", "Neo4j user")
		neo4jPass = flag.String("neo4j-pass", "", "Neo4j password")
		neo4jDB   = flag.String("neo4j-db", "", "Neo4j database (server default if empty)")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	cfg := storeConfig{
		kind:      *storeKind,
		path:      *path,
		neo4jURI:  *neo4jURI,
		neo4jUser: *neo4jUser,
		neo4jPass: *neo4jPass,
		neo4jDB:   *neo4jDB,
		watch:     flag.Arg(0) == "watch",
	}
	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()
		cfg.logger = log
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, cfg, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg storeConfig, args []string) (int, error) {
	cmd, args := args[0], args[1:]
	if err := checkArgs(cmd, args); err != nil {
		return 0, err
	}

	m, fs, err := openManager(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = m.Close() }()

	switch cmd {
	case "import":
		return 0, runImport(ctx, m, args[0])
	case "types":
		listTypes(os.Stdout, m.Types(), useColor())
		return 0, nil
	case "show":
		t := m.TypeByName(args[0])
		if t == nil {
			return 0, fmt.Errorf("type %q not found", args[0])
		}
		renderRows(os.Stdout, layout.Dump(t), useColor())
		return 0, nil
	case "find":
		return runFind(m, args[0], args[1])
	case "check":
		rawTypes, err := m.Backend().LoadTypes(ctx)
		if err != nil {
			return 0, fmt.Errorf("load types: %w", err)
		}
		rawMembers, err := m.Backend().LoadMembers(ctx)
		if err != nil {
			return 0, fmt.Errorf("load members: %w", err)
		}
		problems := check(m, rawTypes, rawMembers)
		for _, p := range problems {
			fmt.Println(p)
		}
		if len(problems) > 0 {
			return 2, nil
		}
		fmt.Printf("%d types consistent\n", len(m.Types()))
		return 0, nil
	case "watch":
		if fs == nil {
			return 0, fmt.Errorf("watch needs the file backend")
		}
		return 0, runWatch(ctx, m, fs)
	}
	return 0, fmt.Errorf("unknown command %q", cmd)
}

func checkArgs(cmd string, args []string) error {
	want := map[string]int{"import": 1, "types": 0, "show": 1, "find": 2, "check": 0, "watch": 0}
	n, ok := want[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	if len(args) != n {
		return fmt.Errorf("%s: expected %d arguments, got %d", cmd, n, len(args))
	}
	return nil
}

func runImport(ctx context.Context, m *types.Manager, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	imported, err := witimport.New(m).ImportJSON(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d types from %s\n", len(imported), file)
	for _, t := range imported {
		fmt.Printf("  %-32s %s, %d bits\n", t.Name(), t.Category(), t.BitSize())
	}
	return nil
}

func runFind(m *types.Manager, name, offset string) (int, error) {
	t := m.TypeByName(name)
	if t == nil {
		return 0, fmt.Errorf("type %q not found", name)
	}
	bits, err := strconv.Atoi(offset)
	if err != nil {
		return 0, fmt.Errorf("bit offset: %w", err)
	}
	res := layout.FindMember(t, bits)
	if !res.Valid() {
		fmt.Printf("%s: no member at bit %d\n", layout.RenderOffset(t, bits), bits)
		return 1, nil
	}
	fmt.Printf("%s (%s, %d bits)\n", res.PathString, res.Member.BaseTypeName(), res.Member.BitSize())
	return 0, nil
}
