package main

/*
diskii emulates the Apple ][ Disk II controller card and its two drives.

Disk images are nibblized into raw tracks exactly as the drive would see
them, and can be inspected, patched and written back through a small
interactive shell, or driven from a script with -shell-batch.
*/

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/paleotronic/diskii/disk"
	"github.com/paleotronic/diskii/loggy"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

func usage() {
	fmt.Fprintf(os.Stderr, `%s <options>

Disk II controller and drive emulator. Mounts .dsk/.do, .po, .phys, .nib
and .2mg images and gives shell access to sectors, soft switches and saved
state.

`, path.Base(os.Args[0]))
	flag.PrintDefaults()
}

func binpath() string {

	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE") + "/DiskII"
	}
	return os.Getenv("HOME") + "/DiskII"

}

var drive1 = flag.String("drive1", "", "Disk image to insert in drive 1")
var drive2 = flag.String("drive2", "", "Disk image to insert in drive 2")
var readOnly = flag.Bool("ro", false, "Write protect disks mounted from the command line")
var format = flag.String("format", "", "Force image format (dsk, po, phys, nib, 2mg) instead of using the extension")
var stateFile = flag.String("state", "", "Restore controller state from file before starting")
var verbose = flag.Bool("verbose", false, "Log to stderr")
var logs = flag.Bool("logs", false, "Write log files under "+binpath()+"/logs/")
var shellBatch = flag.String("shell-batch", "", "Execute shell command(s) from file ('stdin' for standard input) and exit")
var export = flag.String("export", "", "Write drive 1 to this image file before exiting")

func main() {

	flag.Usage = usage
	flag.Parse()

	loggy.ECHO = *verbose
	if *logs {
		loggy.LogFolder = binpath() + "/logs/"
	}

	s := newSession(afero.NewOsFs(), os.Stdout, os.Stderr)
	s.readOnly = *readOnly

	if *format != "" {
		f, err := disk.ParseFormat(*format)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		s.format = f
	}

	if code := setup(s, *stateFile, *drive1, *drive2); code != 0 {
		os.Exit(code)
	}

	script, batch, err := batchScript(s.fs, *shellBatch)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read commands: "+err.Error())
		os.Exit(1)
	}

	if batch {
		if err := s.batch(script); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
	} else {
		s.fs.MkdirAll(binpath(), 0755)
		if err := s.interactive(binpath() + "/.shell_history"); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
	}

	if *export != "" && s.process("export 1 "+quote(*export)) != shellOK {
		os.Exit(3)
	}
}

// setup restores saved state and then mounts the command line disks, so
// disks given explicitly replace the ones in the state file.
func setup(s *session, state, d1, d2 string) int {
	if state != "" && s.process("loadstate "+quote(state)) != shellOK {
		return 1
	}
	for n, p := range []string{d1, d2} {
		if p == "" {
			continue
		}
		if s.process(fmt.Sprintf("mount %d %s", n+1, quote(p))) != shellOK {
			return 1
		}
	}
	if d1 != "" {
		s.target = 1
	}
	return 0
}

// batchScript decides between the interactive shell and a script. Without
// -shell-batch a script is read from stdin when it is not a terminal.
func batchScript(fs afero.Fs, name string) (string, bool, error) {
	var data []byte
	var err error

	switch {
	case name == "stdin" || (name == "" && !term.IsTerminal(int(os.Stdin.Fd()))):
		data, err = io.ReadAll(os.Stdin)
	case name != "":
		data, err = afero.ReadFile(fs, name)
	default:
		return "", false, nil
	}

	return string(data), true, err
}

func quote(p string) string {
	return `"` + strings.ReplaceAll(p, `"`, "") + `"`
}
