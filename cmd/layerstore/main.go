// Command layerstore is an interactive/scripted CLI for poking at a
// layerstore.Store backed by a file or an in-memory buffer.
//
// Grounded on cmd/parser.go's cli.NewApp/cli.Command shape and
// cmd/iobench.go's use of fatih/color and go-humanize for operator
// output.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/layerstore/layerstore"
	"github.com/layerstore/layerstore/backend"
	filebackend "github.com/layerstore/layerstore/backend/file"
	membackend "github.com/layerstore/layerstore/backend/memory"
	"github.com/layerstore/layerstore/internal/logging"
)

func init() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logging.Formatter{UseColors: true})
}

func openStore(ctx *cli.Context) (*layerstore.Store, error) {
	opts := layerstore.DefaultOptions()

	if configPath := ctx.GlobalString("config"); configPath != "" {
		loaded, err := layerstore.LoadOptionsFromYAML(configPath)
		if err != nil {
			return nil, cli.NewExitError(fmt.Sprintf("loading --config: %v", err), 1)
		}

		opts = loaded
	}

	if ps := ctx.GlobalInt("page-size"); ps > 0 {
		opts.PageSize = uint32(ps)
	}

	if mp := ctx.GlobalInt("max-pages"); mp > 0 {
		opts.MaxPages = uint32(mp)
	}

	var be backend.Backend

	path := ctx.GlobalString("path")
	switch ctx.GlobalString("backend") {
	case "memory":
		be = membackend.New()
	case "file":
		if path == "" {
			return nil, cli.NewExitError("--path is required for the file backend", 1)
		}

		be = filebackend.New(path)
	default:
		return nil, cli.NewExitError("unknown --backend (want 'file' or 'memory')", 1)
	}

	s := layerstore.New(be, opts)
	if err := s.Open(); err != nil {
		return nil, err
	}

	return s, nil
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func handleStat(ctx *cli.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	size, err := s.Stat()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", color.GreenString("size:"), humanize.Bytes(size))
	return nil
}

func handleRead(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return cli.NewExitError("usage: read <offset> <size>", 1)
	}

	offset, err := parseUint(ctx.Args().Get(0))
	if err != nil {
		return err
	}

	size, err := parseUint(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	buf, err := s.Read(offset, size)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(buf)
	return err
}

func handleWrite(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.NewExitError("usage: write <offset> [data read from stdin]", 1)
	}

	offset, err := parseUint(ctx.Args().Get(0))
	if err != nil {
		return err
	}

	data, err := readAllStdin()
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Write(offset, data); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", color.GreenString("wrote:"), humanize.Bytes(uint64(len(data))))
	return nil
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, info.Size())
	tmp := make([]byte, 64*1024)

	for {
		n, err := os.Stdin.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}

		if err != nil {
			break
		}
	}

	return buf, nil
}

func handleFlush(ctx *cli.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	size, err := s.Stat()
	if err != nil {
		return err
	}

	if err := s.Flush(0, size); err != nil {
		return err
	}

	fmt.Println(color.GreenString("flush complete"))
	return nil
}

func handleEvict(ctx *cli.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	percent := ctx.Float64("percent")
	if percent == 0 {
		percent = 1.0
	}

	if err := s.Evict(percent, ctx.Bool("flush-first")); err != nil {
		return err
	}

	fmt.Println(color.GreenString("evict complete"))
	return nil
}

func handlePin(unpin bool) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if ctx.NArg() < 2 {
			return cli.NewExitError("usage: pin <offset> <size>", 1)
		}

		offset, err := parseUint(ctx.Args().Get(0))
		if err != nil {
			return err
		}

		size, err := parseUint(ctx.Args().Get(1))
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if unpin {
			s.Unpin(offset, size)
		} else {
			s.Pin(offset, size)
		}

		return nil
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "layerstore"
	app.Usage = "Inspect and drive a layered random-access byte store"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "backend", Value: "memory", Usage: "'file' or 'memory'"},
		cli.StringFlag{Name: "path", Usage: "Backend file path (required for --backend file)"},
		cli.StringFlag{Name: "config", Usage: "Load Options from a sahib/config-validated YAML file"},
		cli.IntFlag{Name: "page-size", Usage: "Override the default page size"},
		cli.IntFlag{Name: "max-pages", Usage: "Override the default resident page cap"},
	}

	app.Commands = []cli.Command{
		{Name: "stat", Usage: "Print the logical size", Action: handleStat},
		{Name: "read", Usage: "Read a byte range to stdout", ArgsUsage: "<offset> <size>", Action: handleRead},
		{Name: "write", Usage: "Write stdin at an offset", ArgsUsage: "<offset>", Action: handleWrite},
		{Name: "flush", Usage: "Flush all dirty pages to the backend", Action: handleFlush},
		{
			Name:  "evict",
			Usage: "Evict resident pages",
			Flags: []cli.Flag{
				cli.Float64Flag{Name: "percent", Value: 1.0, Usage: "Fraction of unpinned resident pages to evict"},
				cli.BoolFlag{Name: "flush-first", Usage: "Flush each victim before evicting it"},
			},
			Action: handleEvict,
		},
		{Name: "pin", Usage: "Pin a byte range", ArgsUsage: "<offset> <size>", Action: handlePin(false)},
		{Name: "unpin", Usage: "Unpin a byte range", ArgsUsage: "<offset> <size>", Action: handlePin(true)},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
