// Command svfsutil is a thin, one-shot wrapper around the svfs engine: each
// invocation opens an image, runs exactly one operation, and exits. It is
// not a shell: there is no REPL, no session working directory, and no line
// editing. Those belong in a collaborator layer this repository doesn't
// implement.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/svfs"
)

func main() {
	app := &cli.App{
		Name:  "svfsutil",
		Usage: "inspect and manipulate a single-file virtual file system image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Required: true, Usage: "path to the disk image"},
		},
		Commands: []*cli.Command{
			formatCommand,
			lsCommand,
			catCommand,
			writeCommand,
			mkdirCommand,
			rmCommand,
			mvCommand,
			cpCommand,
			statCommand,
			fragCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("svfsutil: %s", err.Error())
	}
}

func openExisting(c *cli.Context) (*svfs.Engine, error) {
	return svfs.Open(c.String("image"), nil, nil)
}

var formatCommand = &cli.Command{
	Name:      "format",
	Usage:     "create a new, empty image",
	ArgsUsage: "BLOCK_SIZE INDEX_SIZE IMAGE_SIZE NAME_SIZE",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 4 {
			return fmt.Errorf("format requires exactly 4 arguments")
		}
		geom, err := parseGeometryArgs(c.Args().Slice())
		if err != nil {
			return err
		}
		e, err := svfs.Open(c.String("image"), &geom, nil)
		if err != nil {
			return err
		}
		return e.Close()
	},
}

func parseGeometryArgs(args []string) (svfs.Geometry, error) {
	var nums [4]uint64
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return svfs.Geometry{}, fmt.Errorf("argument %d: %w", i+1, err)
		}
		nums[i] = v
	}
	return svfs.Geometry{
		BlockSize: uint32(nums[0]),
		IndexSize: uint32(nums[1]),
		ImageSize: uint32(nums[2]),
		NameSize:  uint32(nums[3]),
	}, nil
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "list a directory's contents",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		entries, err := e.ListDirectoryContents(c.Args().First())
		if err != nil {
			return err
		}
		for _, n := range entries {
			kind := "f"
			if n.IsDirectory {
				kind = "d"
			}
			fmt.Printf("%s\t%d\t%s\n", kind, n.ID, n.Name)
		}
		return nil
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "print a file's contents to stdout",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		data, err := e.ReadFile(c.Args().First())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var writeCommand = &cli.Command{
	Name:      "write",
	Usage:     "create or overwrite a file from a local source file",
	ArgsUsage: "PATH LOCAL_SOURCE",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("write requires PATH and LOCAL_SOURCE")
		}
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		data, err := os.ReadFile(c.Args().Get(1))
		if err != nil {
			return err
		}

		target := c.Args().First()
		if e.Exists(target) {
			return e.EditFile(target, data)
		}
		_, err = e.CreateFile(target, data)
		return err
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a directory",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()
		_, err = e.CreateDirectory(c.Args().First())
		return err
	},
}

var rmCommand = &cli.Command{
	Name:      "rm",
	Usage:     "delete a file or, with -r, a directory tree",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "r", Usage: "delete a directory recursively"},
	},
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		path := c.Args().First()
		if c.Bool("r") {
			return e.DeleteDirectory(path)
		}
		return e.DeleteFile(path)
	},
}

var mvCommand = &cli.Command{
	Name:      "mv",
	Usage:     "move a file into a different directory",
	ArgsUsage: "SRC DST_DIR",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("mv requires SRC and DST_DIR")
		}
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()
		return e.MoveFile(c.Args().First(), c.Args().Get(1))
	},
}

var cpCommand = &cli.Command{
	Name:      "cp",
	Usage:     "copy a file or, with -r, a directory tree",
	ArgsUsage: "SRC DST",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "r", Usage: "copy a directory recursively"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("cp requires SRC and DST")
		}
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		if c.Bool("r") {
			return e.CopyDirectory(c.Args().First(), c.Args().Get(1))
		}
		_, err = e.CopyFile(c.Args().First(), c.Args().Get(1))
		return err
	},
}

var statCommand = &cli.Command{
	Name:      "stat",
	Usage:     "print an inode's attributes",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		_, node, err := e.ResolvePath(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Printf("id: %d\nname: %s\ndirectory: %t\nblocks: %d\nstart_block: %d\ncreated_at: %d\nmodified_at: %d\n",
			node.ID, node.Name, node.IsDirectory, node.Blocks, node.StartBlock, node.CreatedAt, node.ModifiedAt)
		return nil
	},
}

var fragCommand = &cli.Command{
	Name:  "frag",
	Usage: "print the image's fragmentation percentage, or compact it with -defrag",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "defrag", Usage: "compact the image before reporting"},
	},
	Action: func(c *cli.Context) error {
		e, err := openExisting(c)
		if err != nil {
			return err
		}
		defer e.Close()

		if c.Bool("defrag") {
			if err := e.Defragment(); err != nil {
				return err
			}
		}
		fmt.Printf("%.2f%%\n", e.CalculateFragmentation())
		return nil
	},
}
