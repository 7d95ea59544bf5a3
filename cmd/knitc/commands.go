package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"knitc/internal/diag"
	"knitc/internal/driver"
	"knitc/internal/knitout"
	"knitc/internal/monitor"
	"knitc/internal/node"
	"knitc/internal/session"
)

// CompileCommand runs a full compile of the input document named by
// args[0] (or stdin if omitted) and writes the rendered knitout text to
// -o (or stdout).
func CompileCommand(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("o", "-", "output knitout file (- for stdout)")
	verbose := fs.String("v", "info", "diagnostic verbosity: silent|info|verbose|trace")
	monitorAddr := fs.String("monitor", "", "if set, publish progress to this websocket address (e.g. :7777)")
	fs.Parse(args)

	in, closeIn, err := openInput(fs.Args())
	if err != nil {
		return err
	}
	defer closeIn()

	nodes, opts, err := loadInput(in)
	if err != nil {
		return err
	}

	level := parseLevel(*verbose)
	logger := diag.New(os.Stderr, level)

	sess, err := session.New(opts, nil, logger)
	if err != nil {
		return err
	}

	d := driver.New(totalStitches(nodes), sess)
	if *monitorAddr != "" {
		pub := monitor.NewPublisher()
		d.Monitor = pub
		go serveMonitor(*monitorAddr, pub)
	}

	if err := d.Compile(nodes); err != nil {
		return err
	}

	w, closeOut, err := openOutput(*out)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := knitout.NewWriter(w)
	return writer.WriteAll(d.Stream, nil)
}

// CheckCommand loads and validates an input document without emitting
// any knitout, reporting the first error encountered (spec §4.I/§7).
func CheckCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)

	in, closeIn, err := openInput(fs.Args())
	if err != nil {
		return err
	}
	defer closeIn()

	nodes, opts, err := loadInput(in)
	if err != nil {
		return err
	}
	sess, err := session.New(opts, nil, nil)
	if err != nil {
		return err
	}
	d := driver.New(totalStitches(nodes), sess)
	if err := d.Compile(nodes); err != nil {
		return err
	}
	fmt.Printf("ok: %d node(s), %d instruction(s)\n", len(nodes), d.Stream.Length())
	return nil
}

// ServeCommand starts a standalone websocket progress endpoint with its
// own publisher; no compile publishes to it. A compile launched with
// `compile -monitor addr` serves its own /progress endpoint at addr.
func ServeCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":7777", "listen address")
	fs.Parse(args)

	pub := monitor.NewPublisher()
	log.Printf("knitc serve: listening on %s (ws endpoint at /progress)", *addr)
	http.Handle("/progress", pub)
	return http.ListenAndServe(*addr, nil)
}

func serveMonitor(addr string, pub *monitor.Publisher) {
	mux := http.NewServeMux()
	mux.Handle("/progress", pub)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("monitor server stopped: %v", err)
	}
}

func openInput(args []string) (*os.File, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func totalStitches(nodes []*node.Node) int {
	total := 0
	for _, n := range nodes {
		total += n.StitchCount
	}
	return total
}

func parseLevel(s string) diag.Level {
	switch s {
	case "silent":
		return diag.LevelSilent
	case "verbose":
		return diag.LevelVerbose
	case "trace":
		return diag.LevelTrace
	default:
		return diag.LevelInfo
	}
}
