/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Mon Feb 12 10:41:20 2018 mstenber
 * Edit time:     131 min
 *
 */

// mlog is maybe-log, or Markus' log. It is a small wrapper of the
// standard 'log' with two improvements:
//
// - environment-variable-based and 'flag' options for choosing what
// to print; what is not printed will not cause any overhead either
// (by default, everything is off)
//
// - to facilitate tracing, call stack depth is used to determine
// indentation automatically
//
// Code that wants to be told whether to trace (instead of deciding on
// its own) takes a *Tracer; nil Tracer is silent.
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-oufs/util/gid"
)

var logMode = log.Ltime | log.Lmicroseconds
var logger = log.New(os.Stderr, "", logMode)

const (
	StateUninitialized int32 = iota
	StateInitializing
	StateDisabled
	StateEnabled
)

// status can be read by anyone using atomic access
var status int32 = StateUninitialized

var mutex sync.Mutex

// Everything below must be used only with mutex held
var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var tag2Debug map[string]bool
var minDepth int
var callers []uintptr

const maxDepth = 100

var dumpGids = true

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging based on the given file/tag regular expression")
	Reset()
}

// Reset returns the module to its factory default state; the first
// subsequent log call re-reads the environment and flags.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&status, StateUninitialized)
	minDepth = maxDepth
	callers = make([]uintptr, maxDepth)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	if atomic.LoadInt32(&status) < StateDisabled {
		mutex.Lock()
		initialize()
		mutex.Unlock()
	}
	return atomic.LoadInt32(&status) == StateEnabled
}

// SetLogger overrides the output logger. The returned undo function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldLogger := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = oldLogger
	}
}

// SetPattern sets the pattern by hand, overriding the environment and
// flag provided ones. The returned undo function restores the
// previous pattern.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	oldPattern := pattern
	initializeWithPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		initializeWithPattern(oldPattern)
	}
}

func initializeWithPattern(p string) {
	pattern = p
	if p == "" {
		atomic.StoreInt32(&status, StateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	tag2Debug = make(map[string]bool)
	atomic.StoreInt32(&status, StateEnabled)
}

func initialize() {
	if !atomic.CompareAndSwapInt32(&status, StateUninitialized, StateInitializing) {
		return
	}
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	initializeWithPattern(p)
}

// Printf is drop-in replacement of log.Printf. It does runtime.Caller()
// if mlog is enabled at all, so Printf2 or a Tracer is cheaper.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == StateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is supplied with the tag (typically package/file) to match
// against the pattern, and therefore has no runtime.Caller penalty.
func Printf2(tag string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if st < StateDisabled {
		initialize()
		if atomic.LoadInt32(&status) <= StateDisabled {
			return
		}
	}
	debug, ok := tag2Debug[tag]
	if !ok {
		debug = patternRegexp.MatchString(tag)
		tag2Debug[tag] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	depth -= minDepth
	if depth > 0 {
		format = fmt.Sprint(strings.Repeat(".", depth), format)
	}
	if dumpGids {
		format = fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format)
	}
	logger.Printf(format, args...)
}

// Tracer is an explicit tracing handle. Whoever constructs a
// subsystem decides whether it traces by passing one (or nil).
type Tracer struct {
	tag string
}

// NewTracer returns a Tracer whose output is governed by the mlog
// pattern matched against tag.
func NewTracer(tag string) *Tracer {
	return &Tracer{tag: tag}
}

// Tag returns the pattern-matched tag of the tracer.
func (self *Tracer) Tag() string {
	if self == nil {
		return ""
	}
	return self.tag
}

// Printf forwards to Printf2 with the tracer's tag. Safe on nil.
func (self *Tracer) Printf(format string, args ...interface{}) {
	if self == nil {
		return
	}
	Printf2(self.tag, format, args...)
}
