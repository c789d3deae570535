package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/storage-bridge/backend"
	"github.com/wippyai/storage-bridge/bridge"
)

func main() {
	var (
		opName      = flag.String("op", "", "Operation to invoke (setItemSync, getItemSync, ...)")
		argList     = flag.String("args", "", "Comma-separated operation arguments")
		list        = flag.Bool("list", false, "List bridge operations and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !*list && *opName == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridge -op <name> [-args a,b,c]")
		fmt.Fprintln(os.Stderr, "       bridge -list")
		fmt.Fprintln(os.Stderr, "       bridge -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*opName, *argList, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opName, argList string, listOnly bool) error {
	br, err := bridge.New(backend.NewLocal())
	if err != nil {
		return err
	}
	defer br.Release()

	if listOnly {
		fmt.Println("Bridge operations:")
		for _, info := range describeOps() {
			fmt.Printf("  %s\n", info.signature())
		}
		return nil
	}

	c, ok := br.Get(opName)
	if !ok {
		return fmt.Errorf("unknown operation %q (have: %s)",
			opName, strings.Join(br.Operations(), ", "))
	}

	var args []any
	if argList != "" {
		for _, raw := range strings.Split(argList, ",") {
			args = append(args, parseArg(raw))
		}
	}

	result := c.Call(args...)
	if result == nil {
		fmt.Println("Result: null")
		return nil
	}
	fmt.Printf("Result: %v\n", result)
	return nil
}

// parseArg maps a CLI token to a call argument. Booleans are recognized,
// everything else rides through as a string.
func parseArg(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	default:
		return raw
	}
}
