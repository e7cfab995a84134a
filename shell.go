package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/paleotronic/diskii/disk"
	"github.com/paleotronic/diskii/drive"
	"github.com/paleotronic/diskii/loggy"
	"github.com/spf13/afero"
)

const (
	shellOK    = 0
	shellError = -1
	shellQuit  = 999
)

var commandList map[string]*shellCommand

// session is everything the shell commands work on.
type session struct {
	fs       afero.Fs
	ctl      *drive.Controller
	lights   *consoleIndicator
	paths    [drive.DRIVES]string
	formats  [drive.DRIVES]disk.Format
	target   int
	readOnly bool
	// format overrides the one picked from a file's extension
	format disk.Format

	out  io.Writer
	errs io.Writer
}

func newSession(fs afero.Fs, out, errs io.Writer) *session {
	lights := &consoleIndicator{}
	return &session{
		fs:     fs,
		ctl:    drive.NewController(lights),
		lights: lights,
		target: 1,
		out:    out,
		errs:   errs,
	}
}

func (s *session) errorf(format string, v ...interface{}) int {
	msg := fmt.Sprintf(format, v...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	io.WriteString(s.errs, msg)
	loggy.Get(loggy.SHELL).Errorf("%s", msg)
	return shellError
}

func smartSplit(line string) (string, []string) {

	var out []string

	var inqq bool
	var lastEscape bool
	var chunk string

	add := func() {
		if chunk != "" {
			out = append(out, chunk)
			chunk = ""
		}
	}

	for _, ch := range line {
		switch {
		case ch == '"':
			inqq = !inqq
			add()
		case ch == ' ':
			if inqq || lastEscape {
				chunk += string(ch)
			} else {
				add()
			}
			lastEscape = false
		case ch == '\\' && !inqq:
			lastEscape = true
		default:
			chunk += string(ch)
		}
	}

	add()

	if len(out) == 0 {
		return "", out
	}

	return out[0], out[1:]
}

func (s *session) prompt() string {
	name := "<empty>"
	if p := s.paths[s.target-1]; p != "" {
		name = filepath.Base(p)
	}
	flag := ""
	if s.lights.dirty[s.target-1] {
		flag = "*"
	}
	return fmt.Sprintf("d%d:%s%s> ", s.target, name, flag)
}

type shellCommand struct {
	Name             string
	Description      string
	MinArgs, MaxArgs int
	Code             func(s *session, args []string) int
	NeedsMount       bool
	Context          shellCommandContext
	Text             []string
}

type shellCommandContext int

const (
	sccNone shellCommandContext = 1 << iota
	sccLocal
	sccCommand
)

type shellCompleter struct {
	s *session
}

func hasPrefix(str []rune, prefix []rune) bool {
	if len(prefix) > len(str) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if str[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (sc *shellCompleter) Do(line []rune, pos int) ([][]rune, int) {

	prefix := ""
	chunk := ""
	for _, ch := range line {
		if ch == ' ' {
			prefix = chunk
			break
		} else {
			chunk += string(ch)
		}
	}

	chunk = ""
	cprefix := ""
	var lastEscape bool
	for i := 0; i < pos; i++ {
		ch := line[i]
		switch {
		case ch == '\\':
			lastEscape = true
		case ch == ' ' && !lastEscape:
			cprefix = chunk
			chunk = ""
			lastEscape = false
		default:
			chunk += string(ch)
		}
	}
	cprefix = chunk

	var context shellCommandContext = sccCommand
	if cmd, match := commandList[prefix]; match {
		context = cmd.Context
	}

	var items [][]rune
	switch context {
	case sccCommand:
		for k := range commandList {
			items = append(items, []rune(k))
		}
	case sccLocal:
		files, err := afero.Glob(sc.s.fs, cprefix+"*")
		if err != nil {
			return items, 0
		}
		for _, v := range files {
			items = append(items, []rune(v))
		}
	}

	if len(items) == 0 {
		return [][]rune(nil), 0
	}

	var filt [][]rune
	for _, v := range items {
		if hasPrefix(v, []rune(cprefix)) {
			filt = append(filt, shellEscape(v[len([]rune(cprefix)):]))
		}
	}
	sort.Slice(filt, func(i, j int) bool { return string(filt[i]) < string(filt[j]) })
	return filt, len([]rune(cprefix))
}

func shellEscape(str []rune) []rune {
	out := make([]rune, 0)
	for _, v := range str {
		if v == ' ' {
			out = append(out, '\\')
		}
		out = append(out, v)
	}
	return out
}

func (s *session) process(line string) int {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return shellOK
	}

	verb, args := smartSplit(line)
	if verb == "" {
		return shellOK
	}

	verb = strings.ToLower(verb)
	command, ok := commandList[verb]
	if !ok {
		return s.errorf("Unrecognized command: %s", verb)
	}

	if command.MinArgs != -1 && len(args) < command.MinArgs {
		return s.errorf("%s expects at least %d arguments", verb, command.MinArgs)
	}
	if command.MaxArgs != -1 && len(args) > command.MaxArgs {
		return s.errorf("%s expects at most %d arguments", verb, command.MaxArgs)
	}
	if command.NeedsMount {
		if d, _ := s.ctl.Drive(s.target); !d.HasDisk() {
			return s.errorf("%s only works with a disk in the drive", verb)
		}
	}

	loggy.Get(loggy.SHELL).Debugf("Command: %s %v", verb, args)
	return command.Code(s, args)
}

// batch runs script lines until one fails or quits.
func (s *session) batch(script string) error {
	for i, l := range strings.Split(script, "\n") {
		switch s.process(l) {
		case shellError:
			return fmt.Errorf("script failed at line %d: %s", i+1, strings.TrimSpace(l))
		case shellQuit:
			return nil
		}
	}
	return nil
}

func (s *session) interactive(history string) error {

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt(),
		HistoryFile:            history,
		DisableAutoSaveHistory: false,
		AutoComplete:           &shellCompleter{s: s},
		Stdout:                 s.out,
		Stderr:                 s.errs,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		if s.process(line) == shellQuit {
			break
		}

		rl.SetPrompt(s.prompt())
	}

	return nil
}
