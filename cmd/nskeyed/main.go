package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/nskeyed"
	"github.com/wippyai/nskeyed/decoder"
	"github.com/wippyai/nskeyed/encode"
)

func main() {
	var (
		textOut     = pflag.BoolP("plist", "p", false, "write a text (XML) property list (default)")
		binaryOut   = pflag.BoolP("binary", "b", false, "write a binary property list")
		jsonOut     = pflag.BoolP("json", "j", false, "write JSON")
		openStepOut = pflag.BoolP("openstep", "s", false, "write an OpenStep property list")
		retainNulls = pflag.BoolP("nulls", "n", false, "keep null values inside containers")
		rawClasses  = pflag.BoolP("raw-classes", "t", false, "skip collection reinterpretation, keep $classes metadata")
		interactive = pflag.BoolP("interactive", "i", false, "browse the decoded archive in a TUI")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = usage
	pflag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		decoder.SetLogger(logger)
	}

	format := encode.XML
	chosen := 0
	for _, f := range []struct {
		set    bool
		format encode.Format
	}{
		{*textOut, encode.XML},
		{*binaryOut, encode.Binary},
		{*jsonOut, encode.JSON},
		{*openStepOut, encode.OpenStep},
	} {
		if f.set {
			format = f.format
			chosen++
		}
	}
	if chosen > 1 {
		fmt.Fprintln(os.Stderr, "Error: choose at most one of -p, -b, -j, -s")
		os.Exit(1)
	}

	opts := nskeyed.Options{
		Format:      format,
		RawClasses:  *rawClasses,
		RetainNulls: *retainNulls,
	}

	args := pflag.Args()
	if *interactive {
		if len(args) != 1 {
			usage()
			os.Exit(1)
		}
		if err := runInteractive(args[0], opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(args) != 2 {
		usage()
		os.Exit(1)
	}
	if err := run(args[0], args[1], opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, opts nskeyed.Options) error {
	if outPath != "-" {
		return nskeyed.ConvertFile(inPath, outPath, opts)
	}

	if opts.Format == encode.Binary && term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("refusing to write a binary property list to a terminal; redirect stdout or name an output file")
	}
	tree, err := nskeyed.DecodeFile(inPath, opts)
	if err != nil {
		return err
	}
	return encode.Write(os.Stdout, tree, opts.Format)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: nskeyed [flags] <input> <output>")
	fmt.Fprintln(os.Stderr, "       nskeyed -i <input>  (interactive mode)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Converts an NSKeyedArchiver-encoded property list (binary or XML) into a")
	fmt.Fprintln(os.Stderr, "plain property list or JSON. Use - as the output to write to stdout.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	pflag.PrintDefaults()
}
