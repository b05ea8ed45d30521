// Command waiton blocks until every given resource is available, then exits
// 0. It exits non-zero on a timeout or configuration error.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flashflags "github.com/agilira/flash-flags"

	waiton "github.com/axondata/go-waiton"
)

// shortToLong maps every short flag to its long form. flash-flags only
// registers long names, so short flags are rewritten into their long
// equivalents before Parse ever sees them.
var shortToLong = map[string]string{
	"-c": "--config",
	"-d": "--delay",
	"-i": "--interval",
	"-l": "--log",
	"-r": "--reverse",
	"-s": "--simultaneous",
	"-t": "--timeout",
	"-v": "--verbose",
	"-w": "--window",
	"-h": "--help",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	args = rewriteShortFlags(args)
	resources := positionalArgs(args)

	fs := flashflags.New("waiton")
	fs.SetDescription("Wait for files, ports, sockets, and HTTP(S) endpoints to become available.")
	fs.SetVersion(waiton.Version)

	config := fs.String("config", "", "path to a YAML options file")
	// Durations are registered as strings, not flash-flags' native
	// .Duration() (which delegates to time.ParseDuration and rejects a
	// bare number), so they follow waiton.ParseDuration's grammar instead:
	// ^([\d.]+)(|ms|s|m|h)$.
	delay := fs.String("delay", "", "delay before the first probe of every resource")
	httpTimeout := fs.String("httpTimeout", "", "per-HTTP-request timeout")
	interval := fs.String("interval", "", "poll period")
	logFlag := fs.Bool("log", false, "enable progress logging")
	reverse := fs.Bool("reverse", false, "wait for resources to become unavailable")
	simultaneous := fs.Int("simultaneous", 0, "max in-flight probes per resource")
	tcpTimeout := fs.String("tcpTimeout", "", "per-TCP-connect timeout")
	timeout := fs.String("timeout", "", "global deadline")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	window := fs.String("window", "", "file-size stability window")
	help := fs.Bool("help", false, "print usage and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *help {
		fs.PrintHelp()
		return 1
	}

	opts := waiton.Options{
		Resources:    resources,
		Simultaneous: *simultaneous,
		Reverse:      *reverse,
		Log:          *logFlag,
		Verbose:      *verbose,
	}

	for _, d := range []struct {
		raw  string
		dest *time.Duration
	}{
		{*delay, &opts.Delay},
		{*timeout, &opts.Timeout},
		{*httpTimeout, &opts.HTTPTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := waiton.ParseDuration(d.raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		*d.dest = parsed
	}

	// Interval, Window, and TCPTimeout use *time.Duration so an explicit
	// "0" on the command line is distinguishable from the flag never having
	// been passed at all; only the latter gets Validate's default.
	for _, d := range []struct {
		raw  string
		dest **time.Duration
	}{
		{*interval, &opts.Interval},
		{*window, &opts.Window},
		{*tcpTimeout, &opts.TCPTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := waiton.ParseDuration(d.raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		*d.dest = &parsed
	}

	if *config != "" {
		fc, err := waiton.LoadFileConfig(*config)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := fc.ApplyTo(&opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if err := waiton.Run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// rewriteShortFlags rewrites recognized short flags into their long form,
// leaving unknown arguments (including positional resources) untouched.
func rewriteShortFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if long, ok := shortToLong[a]; ok {
			out = append(out, long)
			continue
		}
		out = append(out, a)
	}
	return out
}

// positionalArgs collects every resource string on the command line: any
// token that isn't itself a "--flag" and isn't the value immediately
// following a non-boolean "--flag".
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) >= 2 && a[:2] == "--" {
			if !isBoolFlag(a[2:]) && i+1 < len(args) {
				i++ // skip this flag's value
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func isBoolFlag(name string) bool {
	switch name {
	case "log", "reverse", "verbose", "help":
		return true
	default:
		return false
	}
}
