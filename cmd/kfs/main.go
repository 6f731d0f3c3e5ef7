package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-kfs/device"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/kfs"
	"github.com/mit-pdos/go-kfs/super"
	"github.com/mit-pdos/go-kfs/util"
)

func main() {
	app := &cli.App{
		Name:  "kfs",
		Usage: "Inspect and modify kernel file system images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "disk image file",
				Value: "kfs.img",
			},
			&cli.StringFlag{
				Name:  "bolt",
				Usage: "bbolt database holding the disk blocks (overrides --image)",
			},
			&cli.Uint64Flag{
				Name:  "debug",
				Usage: "debug log level",
			},
			&cli.BoolFlag{
				Name:  "ops",
				Usage: "print per-operation statistics on exit",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "print statistics as CSV",
			},
		},
		Before: func(c *cli.Context) error {
			util.Debug = c.Uint64("debug")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "mkfs",
				Usage:  "Format the disk",
				Action: mkfs,
			},
			{
				Name:      "ls",
				Usage:     "List a directory",
				ArgsUsage: "[PATH]",
				Action:    withEngine(ls),
			},
			{
				Name:      "cat",
				Usage:     "Print a file",
				ArgsUsage: "PATH",
				Action:    withEngine(cat),
			},
			{
				Name:      "put",
				Usage:     "Copy a local file into the file system",
				ArgsUsage: "LOCAL PATH",
				Action:    withEngine(put),
			},
			{
				Name:      "rm",
				Usage:     "Unlink a path",
				ArgsUsage: "PATH",
				Action:    withEngine(rm),
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory",
				ArgsUsage: "PATH",
				Action:    withEngine(mkdir),
			},
			{
				Name:      "stat",
				Usage:     "Show the type and size of a path",
				ArgsUsage: "PATH",
				Action:    withEngine(stat),
			},
			{
				Name:      "dump",
				Usage:     "Write a compressed image of the disk",
				ArgsUsage: "FILE",
				Action:    dump,
			},
			{
				Name:      "restore",
				Usage:     "Load a compressed image onto the disk",
				ArgsUsage: "FILE",
				Action:    restore,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("kfs: %s", err)
	}
}

func config() kfs.Config {
	cfg := kfs.DefaultConfig()
	cfg.Console = device.MkConsole(os.Stdin, os.Stdout)
	return cfg
}

func openDisk(c *cli.Context, cfg kfs.Config) (disk.Disk, error) {
	nblocks := super.MkFsSuper(cfg.MaxInodes, cfg.NDataBlocks).NBlocks()
	if p := c.String("bolt"); p != "" {
		return disk.NewBoltDisk(p, nblocks)
	}
	return disk.NewFileDisk(c.String("image"), nblocks)
}

func finish(c *cli.Context, e *kfs.Engine) error {
	if c.Bool("ops") {
		if err := e.WriteStats(os.Stderr, c.Bool("csv")); err != nil {
			e.Shutdown()
			return err
		}
	}
	return e.Shutdown()
}

func mkfs(c *cli.Context) error {
	cfg := config()
	d, err := openDisk(c, cfg)
	if err != nil {
		return err
	}
	e, err := kfs.Mkfs(d, cfg)
	if err != nil {
		d.Close()
		return fmt.Errorf("mkfs: %w", err)
	}
	return finish(c, e)
}

// withEngine runs action against the recovered file system, as process 0.
func withEngine(action func(*cli.Context, *kfs.Engine) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg := config()
		d, err := openDisk(c, cfg)
		if err != nil {
			return err
		}
		e, err := kfs.MkEngine(d, cfg)
		if err != nil {
			d.Close()
			return err
		}
		e.Recover()
		e.Initialize(0)
		err = action(c, e)
		e.Remove(0)
		if err2 := finish(c, e); err == nil {
			err = err2
		}
		return err
	}
}

func arg(c *cli.Context, i int) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("%s: missing argument %d", c.Command.Name, i+1)
	}
	return c.Args().Get(i), nil
}
