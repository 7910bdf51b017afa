/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 27 12:02:26 2018 mstenber
 * Last modified: Tue Feb 27 12:31:50 2018 mstenber
 * Edit time:     17 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fingon/go-oufs/fs"
	"github.com/fingon/go-oufs/fusefs"
	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/storage/factory"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s MOUNTDIR STORAGEDIR\n", os.Args[0])
		flag.PrintDefaults()
	}
	backendp := flag.String("backend", "image",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	disk := flag.String("disk", storage.DefaultName, "Name of the virtual disk")
	cachesize := flag.Int("cachesize", 64, "Number of blocks to cache")
	format := flag.Bool("format", false, "Format the disk before mounting")
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	mountpoint := flag.Arg(0)
	storedir := flag.Arg(1)

	beconf := storage.BackendConfiguration{Directory: storedir,
		Name:      *disk,
		CacheSize: *cachesize}
	dev, err := factory.NewWithConfig(*backendp, beconf)
	if err != nil {
		log.Fatal(err)
	}
	if *format {
		if err = fs.Format(dev, fs.Geometry{}); err != nil {
			log.Fatal(err)
		}
	}
	config := fs.Config{}
	if mlog.IsEnabled() {
		config.Trace = mlog.NewTracer("fs/mount")
	}
	myfs, err := fs.NewFs(dev, config)
	if err != nil {
		log.Fatal(err)
	}

	server, err := fusefs.Mount(myfs, mountpoint, mlog.IsEnabled())
	if err != nil {
		log.Panic(err)
	}

	// loop is here
	server.Serve()

	// myfs will take care of backend clearing as well
	myfs.Close()
}
