/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 26 15:20:44 2018 mstenber
 * Last modified: Wed Feb 28 10:02:19 2018 mstenber
 * Edit time:     74 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/fs"
	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/shell"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/storage/factory"
)

type command struct {
	args     string
	min, max int
	run      func(env *env, args []string) error
}

type env struct {
	dev    storage.Device
	fs     *fs.Fs
	user   *shell.User
	stdin  io.Reader
	stdout io.Writer
}

var commands = map[string]command{
	"format": {"", 0, 0, func(e *env, args []string) error {
		return fs.Format(e.dev, fs.Geometry{})
	}},
	"ls": {"[PATH]", 0, 1, func(e *env, args []string) error {
		p := "."
		if len(args) > 0 {
			p = args[0]
		}
		names, err := e.user.Ls(p)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(e.stdout, name)
		}
		return nil
	}},
	"mkdir": {"PATH", 1, 1, func(e *env, args []string) error {
		return e.user.Mkdir(args[0])
	}},
	"rmdir": {"PATH", 1, 1, func(e *env, args []string) error {
		return e.user.Rmdir(args[0])
	}},
	"touch": {"PATH", 1, 1, func(e *env, args []string) error {
		return e.user.Touch(args[0])
	}},
	"create": {"PATH (content from stdin)", 1, 1, func(e *env, args []string) error {
		return writeFrom(e, args[0], e.user.Create)
	}},
	"append": {"PATH (content from stdin)", 1, 1, func(e *env, args []string) error {
		return writeFrom(e, args[0], e.user.Append)
	}},
	"more": {"PATH", 1, 1, func(e *env, args []string) error {
		b, err := e.user.More(args[0])
		if err != nil {
			return err
		}
		_, err = e.stdout.Write(b)
		return err
	}},
	"rm": {"PATH", 1, 1, func(e *env, args []string) error {
		return e.user.Rm(args[0])
	}},
	"link": {"SRC DST", 2, 2, func(e *env, args []string) error {
		return e.user.Link(args[0], args[1])
	}},
	"check": {"", 0, 0, func(e *env, args []string) error {
		report, err := e.fs.Check()
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%d inodes, %d free + %d used of %d data blocks\n",
			report.Inodes, report.FreeBlocks, report.OwnedBlocks, report.DataBlocks)
		for _, p := range report.Problems {
			fmt.Fprintln(e.stdout, p)
		}
		if !report.OK() {
			return errors.Errorf("%d problems", len(report.Problems))
		}
		return nil
	}},
	"inspect": {"[BLOCK..]", 0, -1, func(e *env, args []string) error {
		return inspect(e.fs, args, e.stdout)
	}},
}

func writeFrom(e *env, p string, write func(string, []byte) (int, error)) error {
	data, err := ioutil.ReadAll(e.stdin)
	if err != nil {
		return err
	}
	n, err := write(p, data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return errors.Errorf("file full: wrote %d of %d bytes", n, len(data))
	}
	return nil
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func usage(flags *flag.FlagSet, stderr io.Writer) {
	fmt.Fprintf(stderr, "Usage:\n\n%s [flags] COMMAND [ARGS]\n\nCommands:\n", os.Args[0])
	for _, name := range commandNames() {
		fmt.Fprintf(stderr, "  %s %s\n", name, commands[name].args)
	}
	fmt.Fprintf(stderr, "\nFlags:\n")
	flags.PrintDefaults()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("oufs", flag.ContinueOnError)
	flags.SetOutput(stderr)
	backend := flags.String("backend", getenv("OUFS_BACKEND", "image"),
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	dir := flags.String("dir", getenv("OUFS_DIR", "."), "Directory the virtual disk is stored in")
	disk := flags.String("disk", getenv("OUFS_DISK", storage.DefaultName), "Name of the virtual disk")
	cwd := flags.String("cwd", getenv("OUFS_CWD", "/"), "Working directory within the filesystem")
	cachesize := flags.Int("cachesize", 0, "Number of blocks to cache")
	trace := flags.Bool("trace", false, "Trace filesystem operations (MLOG environment variable selects more)")
	flags.Usage = func() { usage(flags, stderr) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return errors.New("command missing")
	}
	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		flags.Usage()
		return errors.Errorf("unknown command %q", name)
	}
	cargs := flags.Args()[1:]
	if len(cargs) < cmd.min || cmd.max >= 0 && len(cargs) > cmd.max {
		return errors.Errorf("usage: %s %s", name, cmd.args)
	}

	config := storage.BackendConfiguration{Directory: *dir, Name: *disk, CacheSize: *cachesize}
	dev, err := factory.NewWithConfig(*backend, config)
	if err != nil {
		return err
	}
	e := &env{dev: dev, stdin: stdin, stdout: stdout}
	if name == "format" {
		defer dev.Close()
		return cmd.run(e, cargs)
	}
	var tracer *mlog.Tracer
	if *trace {
		mlog.SetPattern("^fs/")
		tracer = mlog.NewTracer("fs/" + name)
	}
	e.fs, err = fs.NewFs(dev, fs.Config{Trace: tracer})
	if err != nil {
		dev.Close()
		return err
	}
	defer e.fs.Close()
	e.user = shell.NewUser(e.fs)
	if err = e.user.Cd(strings.TrimSpace(*cwd)); err != nil {
		return errors.Wrapf(err, "cwd %s", *cwd)
	}
	return cmd.run(e, cargs)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		}
		os.Exit(1)
	}
}
