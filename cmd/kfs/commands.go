package main

import (
	"fmt"
	"os"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/kfs"
)

func ls(c *cli.Context, e *kfs.Engine) error {
	p := "/"
	if c.NArg() > 0 {
		p = c.Args().First()
	}
	ents, ok := e.ReadDir(p)
	if !ok {
		return fmt.Errorf("ls %s: not a directory", p)
	}
	tbl := table.New("name", "inode", "type", "size").WithWriter(os.Stdout)
	for _, ent := range ents {
		child := p + "/" + ent.Name
		fd := e.Open(0, child, true, false, kfs.NoCreate)
		if fd == -1 {
			continue
		}
		st := e.Status(0, fd)
		e.Close(0, fd)
		tbl.AddRow(ent.Name, ent.Inum, st.InodeType, st.Size)
	}
	tbl.Print()
	return nil
}

// cat copies the file to the output descriptor.
func cat(c *cli.Context, e *kfs.Engine) error {
	p, err := arg(c, 0)
	if err != nil {
		return err
	}
	fd := e.Open(0, p, true, false, kfs.NoCreate)
	if fd == -1 {
		return fmt.Errorf("cat %s: not found", p)
	}
	defer e.Close(0, fd)
	buf := make([]byte, disk.BlockSize)
	for {
		n := e.Read(0, fd, buf)
		if n == 0 {
			return nil
		}
		e.Write(0, 1, buf[:n])
	}
}

func put(c *cli.Context, e *kfs.Engine) error {
	local, err := arg(c, 0)
	if err != nil {
		return err
	}
	p, err := arg(c, 1)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	// replace an existing file rather than writing over its prefix
	e.Unlink(0, p)
	fd := e.Open(0, p, false, true, kfs.CreateFile)
	if fd == -1 {
		return fmt.Errorf("put %s: cannot create", p)
	}
	defer e.Close(0, fd)
	if n := e.Write(0, fd, data); n != uint64(len(data)) {
		return fmt.Errorf("put %s: wrote %d of %d bytes", p, n, len(data))
	}
	return nil
}

func rm(c *cli.Context, e *kfs.Engine) error {
	p, err := arg(c, 0)
	if err != nil {
		return err
	}
	if !e.Unlink(0, p) {
		return fmt.Errorf("rm %s: not found", p)
	}
	return nil
}

func mkdir(c *cli.Context, e *kfs.Engine) error {
	p, err := arg(c, 0)
	if err != nil {
		return err
	}
	fd := e.Open(0, p, true, false, kfs.CreateDir)
	if fd == -1 {
		return fmt.Errorf("mkdir %s: cannot create", p)
	}
	e.Close(0, fd)
	return nil
}

func stat(c *cli.Context, e *kfs.Engine) error {
	p, err := arg(c, 0)
	if err != nil {
		return err
	}
	fd := e.Open(0, p, true, false, kfs.NoCreate)
	if fd == -1 {
		return fmt.Errorf("stat %s: not found", p)
	}
	st := e.Status(0, fd)
	e.Close(0, fd)
	hits, misses := e.CacheStats()
	fmt.Printf("%s: %v, %d bytes (block cache %d hits, %d misses)\n",
		p, st.InodeType, st.Size, hits, misses)
	return nil
}

func dump(c *cli.Context) error {
	out, err := arg(c, 0)
	if err != nil {
		return err
	}
	d, err := openDisk(c, config())
	if err != nil {
		return err
	}
	defer d.Close()
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	n, err := disk.Dump(d, f)
	if err != nil {
		f.Close()
		return fmt.Errorf("dump: %w", err)
	}
	fmt.Printf("dumped %d blocks\n", n)
	return f.Close()
}

func restore(c *cli.Context) error {
	in, err := arg(c, 0)
	if err != nil {
		return err
	}
	d, err := openDisk(c, config())
	if err != nil {
		return err
	}
	defer d.Close()
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer f.Close()
	n, err := disk.Load(f, d)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Printf("restored %d blocks\n", n)
	return d.Barrier()
}
