// cmd/knitc/main.go
package main

import (
	"fmt"
	"log"
	"os"
)

const version = "0.1.0"

// commandAliases lets short forms reach the same handler as their full
// command name, the way the teacher's own CLI maps "r" to "run".
var commandAliases = map[string]string{
	"c": "compile",
	"k": "check",
	"s": "serve",
	"v": "version",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		showUsage()
		return
	}
	if cmd == "--version" || cmd == "-v" || cmd == "version" {
		showVersion()
		return
	}

	switch cmd {
	case "compile":
		if err := CompileCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "check":
		if err := CheckCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "serve":
		if err := ServeCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`knitc - knitting-machine code generator

Usage:
  knitc compile [-o output.k] [-v silent|info|verbose|trace] [-monitor addr] [input.json]
  knitc check [input.json]
  knitc serve [-addr :7777]
  knitc version

Commands:
  compile   compile a node document into a knitout instruction stream
  check     validate a node document without writing output
  serve     run a standalone websocket progress endpoint
  version   print the version and exit

input.json defaults to stdin; -o defaults to stdout.`)
}

func showVersion() {
	fmt.Printf("knitc %s\n", version)
}
