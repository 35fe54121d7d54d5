package cli

import "flag"

const defaultConfigPath = "./elision.toml"

type cliOptions struct {
	configPath  string
	format      string
	out         string
	rewriteDir  string
	style       string
	watch       bool
	watchConfig bool
	history     bool
	since       string
	historyTSV  string
	historyJSON string
	entry       string
	verbose     bool
	version     bool
	args        []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("elision", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.format, "format", "", "Report format: text, json, yaml or sarif")
	fs.StringVar(&opts.out, "out", "", "Write the report to this path instead of stdout")
	fs.StringVar(&opts.rewriteDir, "rewrite-dir", "", "Write rewritten sources below this directory")
	fs.StringVar(&opts.style, "style", "", "Rewrite style: esm or commonjs")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and re-analyse changed files")
	fs.BoolVar(&opts.watchConfig, "watch-config", false, "Reload analysis options when the config file changes (requires --watch)")
	fs.BoolVar(&opts.history, "history", false, "Record this run in the history database")
	fs.StringVar(&opts.since, "since", "", "Include history runs at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write trend report TSV to this path (requires --history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write trend report JSON to this path (requires --history)")
	fs.StringVar(&opts.entry, "entry", "", "Print the runtime load order of this module after rewriting")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
