package main

import (
	"encoding/hex"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/grafana/memblock/pkg/memblock"
)

// dumpCommand writes a range of a file, as a hex dump or raw.
type dumpCommand struct {
	opts   *options
	file   string
	offset int
	length int
	raw    bool
}

func addDumpCommand(app *kingpin.Application, opts *options) {
	cmd := &dumpCommand{opts: opts}
	c := app.Command("dump", "Write a range of a file, decompressed if its extension names an encoding.")
	c.Arg("file", "File to dump.").Required().ExistingFileVar(&cmd.file)
	c.Flag("offset", "Offset of the first byte to dump.").Default("0").IntVar(&cmd.offset)
	c.Flag("length", "Number of bytes to dump; -1 dumps up to the end of the file.").Default("256").IntVar(&cmd.length)
	c.Flag("raw", "Write the bytes unchanged instead of a hex dump.").BoolVar(&cmd.raw)
	c.Action(cmd.run)
}

func (cmd *dumpCommand) run(_ *kingpin.ParseContext) error {
	p, err := cmd.opts.provider()
	if err != nil {
		exitWithErr(err)
	}

	b, err := p.OpenFile(cmd.file)
	if err != nil {
		exitWithErr(err)
	}
	defer b.Close()

	length := cmd.length
	if length < 0 {
		length = b.Size() - cmd.offset
	}
	content, err := memblock.CheckedContent(b, cmd.offset, length)
	if err != nil {
		_ = b.Close()
		exitWithErr(err)
	}

	if cmd.raw {
		_, err = content.WriteTo(os.Stdout)
		return err
	}

	d := hex.Dumper(os.Stdout)
	if _, err := content.WriteTo(d); err != nil {
		return err
	}
	return d.Close()
}
