package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type commandOptions struct {
	ELBAddr        string `short:"a" long:"elb-addr"        default:"127.0.0.1" description:"Address of the routing tier load balancer"`
	ELBPorts       []int  `short:"p" long:"elb-port"                            description:"Routing-query port, may be repeated (default depends on --remote)"`
	Remote         bool   `          long:"remote"                              description:"Use the ports of a non-local cluster"`
	IP             string `          long:"ip"              default:"127.0.0.1" description:"IP address this client advertises for responses"`
	Rate           uint   `short:"r" long:"rate"            default:"1000"      description:"Target lookups per second"`
	Workers        uint   `short:"w" long:"workers"         default:"1"         description:"Number of parallel workers to use"`
	Lookups        uint64 `short:"n" long:"lookups"         default:"10000"     description:"Number of lookups to send"`
	KeyPrefix      string `          long:"key-prefix"      default:"loadtest." description:"Key prefix"`
	KeyCardinality uint   `short:"k" long:"key-cardinality" default:"1000"      description:"Number of distinct keys"`
	UseCache       bool   `          long:"use-cache"                           description:"Resolve from the local cache, falling back to the network for unknown keys"`
}

func parseArgs(args []string) commandOptions {
	var opts commandOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.LongDescription = "" + // because gofmt
		"Sends key lookups to the routing tier and reports how they were spread\n" +
		"across the routing-query ports."

	positional, err := parser.ParseArgs(args)
	if err != nil {
		if !isHelp(err) {
			parser.WriteHelp(os.Stderr)
			_, _ = fmt.Fprintf(os.Stderr, "\n\nerror parsing command line: %v\n", err)
			os.Exit(1)
		}
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if len(positional) != 0 {
		// Near as I can tell there's no way to say no positional arguments allowed.
		parser.WriteHelp(os.Stderr)
		_, _ = fmt.Fprintf(os.Stderr, "\n\nno positional arguments allowed\n")
		os.Exit(1)
	}

	if opts.Rate == 0 || opts.Workers == 0 || opts.KeyCardinality == 0 {
		parser.WriteHelp(os.Stderr)
		_, _ = fmt.Fprintf(os.Stderr, "\n\nrate, workers, and key-cardinality must be non-zero\n")
		os.Exit(1)
	}
	return opts
}

// isHelp is a helper to test the error from ParseArgs() to
// determine if the help message was written. It is safe to
// call without first checking that error is nil.
func isHelp(err error) bool {
	if err == nil { // No error
		return false
	}

	flagError, ok := err.(*flags.Error)
	if !ok { // Not a go-flag error
		return false
	}

	return flagError.Type == flags.ErrHelp
}
