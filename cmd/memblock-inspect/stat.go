package main

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/grafana/memblock/pkg/compression"
	"github.com/grafana/memblock/pkg/memblock"
	"github.com/grafana/memblock/pkg/memblock/provider"
)

// statCommand prints the size, storage kind and checksum of each file.
type statCommand struct {
	opts  *options
	files []string
}

func addStatCommand(app *kingpin.Application, opts *options) {
	cmd := &statCommand{opts: opts}
	c := app.Command("stat", "Print size, storage kind and xxhash64 checksum of files.")
	c.Arg("file", "Files to inspect.").Required().ExistingFilesVar(&cmd.files)
	c.Action(cmd.run)
}

func (cmd *statCommand) run(_ *kingpin.ParseContext) error {
	p, err := cmd.opts.provider()
	if err != nil {
		exitWithErr(err)
	}

	failed := false
	for _, name := range cmd.files {
		if err := cmd.printStat(p, name); err != nil {
			printErr("%s: %v", name, err)
			failed = true
		}
	}
	if failed {
		exitWithErr(fmt.Errorf("failed to inspect some files"))
	}
	return nil
}

func (cmd *statCommand) printStat(p *provider.Provider, name string) error {
	b, err := p.OpenFile(name)
	if err != nil {
		return err
	}
	defer b.Close()

	encoding := compression.EncNone
	if enc, ok := compression.FromPath(name); ok {
		encoding = enc
	}

	color.New(color.Bold).Println(name)
	fmt.Printf("\tsize: %v (%d bytes), kind: %s, encoding: %s\n",
		humanize.IBytes(uint64(b.Size())),
		b.Size(),
		b.Kind(),
		encoding,
	)
	fmt.Printf("\txxhash64: %016x\n", xxhash.Sum64(memblock.UnsafeBytes(b)))
	return nil
}
