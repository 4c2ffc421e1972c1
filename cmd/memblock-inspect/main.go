package main

import (
	"flag"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	dslog "github.com/grafana/dskit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/grafana/memblock/pkg/memblock/provider"
	util_log "github.com/grafana/memblock/pkg/util/log"
)

func main() {
	app := kingpin.New("memblock-inspect", "Inspect files through memory blocks.")

	var opts options
	_ = opts.logLevel.Set("info")
	app.Flag("config.file", "YAML file with the memory block configuration.").StringVar(&opts.configFile)
	app.Flag("log.level", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]").SetValue(&opts.logLevel)
	app.Flag("log.format", "Output log messages in the given format. Valid formats: [logfmt, json]").Default("logfmt").EnumVar(&opts.logFormat, "logfmt", "json")

	addStatCommand(app, &opts)
	addDumpCommand(app, &opts)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

type options struct {
	configFile string
	logLevel   dslog.Level
	logFormat  string
}

// provider builds a block provider from the defaults, overridden by the
// config file if one was given.
func (o *options) provider() (*provider.Provider, error) {
	var cfg provider.Config
	cfg.RegisterFlags(flag.NewFlagSet("memblock", flag.ContinueOnError))

	if o.configFile != "" {
		f, err := os.Open(o.configFile)
		if err != nil {
			return nil, errors.Wrap(err, "opening config file")
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "parsing config file %s", o.configFile)
		}
	}

	reg := prometheus.NewRegistry()
	logger := util_log.InitLogger(o.logLevel, o.logFormat, reg)
	return provider.New(cfg, logger, reg)
}

func exitWithErr(err error) {
	_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func printErr(format string, args ...interface{}) {
	_, _ = color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}
