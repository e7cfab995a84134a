package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paleotronic/diskii/disk"
	"github.com/paleotronic/diskii/drive"
	"github.com/paleotronic/diskii/loggy"
	"github.com/spf13/afero"
)

// Soft switches are exercised through slot 6, where the boot ROM expects the card.
const SLOT6_IO = 0xC0E0

// consoleIndicator keeps drive lights and modified flags for the prompt.
type consoleIndicator struct {
	lights [drive.DRIVES]bool
	dirty  [drive.DRIVES]bool
}

func (ci *consoleIndicator) DriveLight(n int, on bool) {
	ci.lights[n-1] = on
	loggy.Get(loggy.SHELL).Debugf("Drive %d light %v", n, on)
}

func (ci *consoleIndicator) DirtyFlag(n int, dirty bool) {
	ci.dirty[n-1] = dirty
	loggy.Get(loggy.SHELL).Debugf("Drive %d modified %v", n, dirty)
}

func init() {
	commandList = map[string]*shellCommand{
		"mount": {
			Name:        "mount",
			Description: "Insert a disk image into a drive",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellMount,
			Context:     sccLocal,
			Text: []string{
				"mount <1|2> <diskfile>",
				"",
				"Loads a .dsk/.do, .po, .phys, .nib or .2mg image and selects the drive.",
			},
		},
		"unmount": {
			Name:        "unmount",
			Description: "Eject the disk from a drive",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellUnmount,
			Context:     sccNone,
			Text: []string{
				"unmount [<1|2>]",
				"",
				"Ejects the disk in the given (or current) drive. Unsaved changes are lost.",
			},
		},
		"drive": {
			Name:        "drive",
			Description: "Select the drive other commands work on",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellDrive,
			Context:     sccNone,
			Text: []string{
				"drive <1|2>",
			},
		},
		"disks": {
			Name:        "disks",
			Description: "List both drives",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellDisks,
			Context:     sccNone,
		},
		"info": {
			Name:        "info",
			Description: "Information about the current disk",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellInfo,
			NeedsMount:  true,
			Context:     sccNone,
		},
		"read": {
			Name:        "read",
			Description: "Hex dump a sector",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellRead,
			NeedsMount:  true,
			Context:     sccNone,
			Text: []string{
				"read <track> <sector>",
				"",
				"Finds the logical sector on the raw track and dumps its 256 bytes.",
			},
		},
		"write": {
			Name:        "write",
			Description: "Replace a sector with the contents of a local file",
			MinArgs:     3,
			MaxArgs:     3,
			Code:        shellWrite,
			NeedsMount:  true,
			Context:     sccLocal,
			Text: []string{
				"write <track> <sector> <local file>",
				"",
				"Files shorter than 256 bytes are zero padded.",
			},
		},
		"export": {
			Name:        "export",
			Description: "Write a drive's disk to an image file",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellExport,
			Context:     sccLocal,
			Text: []string{
				"export <1|2> <diskfile>",
				"",
				"The image format follows the file extension.",
			},
		},
		"save": {
			Name:        "save",
			Description: "Write the current disk back to the file it came from",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellSave,
			NeedsMount:  true,
			Context:     sccNone,
		},
		"lock": {
			Name:        "lock",
			Description: "Write protect a drive",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellLock,
			Context:     sccNone,
			Text:        []string{"lock [<1|2>]"},
		},
		"unlock": {
			Name:        "unlock",
			Description: "Remove write protection",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellUnlock,
			Context:     sccNone,
			Text:        []string{"unlock [<1|2>]"},
		},
		"clean": {
			Name:        "clean",
			Description: "Clear the modified flag",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellClean,
			Context:     sccNone,
			Text:        []string{"clean [<1|2>]"},
		},
		"phase": {
			Name:        "phase",
			Description: "Energize or release a stepper phase",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellPhase,
			Context:     sccNone,
			Text: []string{
				"phase <0-3> <on|off>",
				"",
				"Drives the selected drive's head like $C080-$C087 would.",
			},
		},
		"peek": {
			Name:        "peek",
			Description: "Read a soft switch",
			MinArgs:     1,
			MaxArgs:     2,
			Code:        shellPeek,
			Context:     sccNone,
			Text: []string{
				"peek <switch 0-F> [<count>]",
				"",
				"Reads $C0E0+switch (slot 6) count times and prints the values.",
			},
		},
		"poke": {
			Name:        "poke",
			Description: "Write a soft switch",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellPoke,
			Context:     sccNone,
			Text: []string{
				"poke <switch 0-F> <value>",
			},
		},
		"savestate": {
			Name:        "savestate",
			Description: "Save controller and disks to a file",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellSaveState,
			Context:     sccLocal,
			Text:        []string{"savestate <file>"},
		},
		"loadstate": {
			Name:        "loadstate",
			Description: "Restore controller and disks from a file",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellLoadState,
			Context:     sccLocal,
			Text:        []string{"loadstate <file>"},
		},
		"help": {
			Name:        "help",
			Description: "Shows this help",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellHelp,
			Context:     sccCommand,
			Text: []string{
				"help <command>",
				"",
				"Display specific help for command or list of commands",
			},
		},
		"quit": {
			Name:        "quit",
			Description: "Leave this place",
			MinArgs:     -1,
			MaxArgs:     -1,
			Code:        func(s *session, args []string) int { return shellQuit },
			Context:     sccNone,
		},
	}
}

func parseNumber(arg string) (int, error) {
	arg = strings.ToLower(arg)
	switch {
	case strings.HasPrefix(arg, "$"):
		v, err := strconv.ParseInt(arg[1:], 16, 32)
		return int(v), err
	case strings.HasPrefix(arg, "0x"):
		v, err := strconv.ParseInt(arg[2:], 16, 32)
		return int(v), err
	}
	v, err := strconv.ParseInt(arg, 10, 32)
	return int(v), err
}

// driveArg picks the drive named by args[0], or the current one.
func (s *session) driveArg(args []string) (*drive.Drive, error) {
	n := s.target
	if len(args) > 0 {
		v, err := parseNumber(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid drive: %s", args[0])
		}
		n = v
	}
	return s.ctl.Drive(n)
}

func shellMount(s *session, args []string) int {
	d, err := s.driveArg(args[:1])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}

	img, err := s.open(args[1])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if s.readOnly {
		img.ReadOnly = true
	}

	if err := s.ctl.Insert(d.Number(), img); err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	s.paths[d.Number()-1] = args[1]
	s.formats[d.Number()-1] = s.fileFormat(args[1])
	s.target = d.Number()

	fmt.Fprintf(s.out, "Mounted %s in drive %d (%s, %d tracks)\n", args[1], d.Number(), img.Format, len(img.Tracks))
	return shellOK
}

// fileFormat is the format a file is read and written back as.
func (s *session) fileFormat(path string) disk.Format {
	if s.format != disk.FormatNone {
		return s.format
	}
	f, _ := disk.FormatForPath(path)
	return f
}

func (s *session) open(path string) (*disk.Image, error) {
	if s.format != disk.FormatNone {
		return disk.OpenFormat(s.fs, path, s.format)
	}
	return disk.Open(s.fs, path)
}

func shellUnmount(s *session, args []string) int {
	d, err := s.driveArg(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if !d.HasDisk() {
		return shellOK
	}
	if d.Dirty() {
		fmt.Fprintf(s.errs, "Discarding changes to %s\n", s.paths[d.Number()-1])
	}
	s.ctl.Eject(d.Number())
	s.paths[d.Number()-1] = ""
	s.formats[d.Number()-1] = disk.FormatNone
	fmt.Fprintf(s.out, "Drive %d is empty\n", d.Number())
	return shellOK
}

func shellDrive(s *session, args []string) int {
	d, err := s.driveArg(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	s.target = d.Number()
	return shellOK
}

func shellDisks(s *session, args []string) int {
	for n := 1; n <= drive.DRIVES; n++ {
		d, _ := s.ctl.Drive(n)
		mark := " "
		if n == s.target {
			mark = ">"
		}
		if !d.HasDisk() {
			fmt.Fprintf(s.out, "%s%d: <empty>\n", mark, n)
			continue
		}
		flags := ""
		if d.ReadOnly() {
			flags += " [locked]"
		}
		if d.Dirty() {
			flags += " [modified]"
		}
		fmt.Fprintf(s.out, "%s%d: %s (%s)%s\n", mark, n, s.paths[n-1], d.Format(), flags)
	}
	return shellOK
}

func shellInfo(s *session, args []string) int {
	d, _ := s.ctl.Drive(s.target)

	fmt.Fprintf(s.out, "Disk path   : %s\n", s.paths[s.target-1])
	fmt.Fprintf(s.out, "Disk type   : %s\n", d.Format())
	fmt.Fprintf(s.out, "Volume      : %d\n", d.Volume())
	fmt.Fprintf(s.out, "Tracks      : %d\n", d.TrackCount())
	fmt.Fprintf(s.out, "Head        : track %d (half track %d), phase %d, offset %d\n", d.Track(), d.Position(), d.Phase(), d.Head())
	fmt.Fprintf(s.out, "Locked      : %v\n", d.ReadOnly())
	fmt.Fprintf(s.out, "Modified    : %v\n", d.Dirty())
	if data, err := d.Image().Encode(d.Format()); err == nil {
		fmt.Fprintf(s.out, "Checksum    : %s\n", disk.Checksum(data))
	}

	return shellOK
}

func (s *session) trackSector(args []string) (int, int, error) {
	track, err := parseNumber(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid track: %s", args[0])
	}
	sector, err := parseNumber(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sector: %s", args[1])
	}
	return track, sector, nil
}

func shellRead(s *session, args []string) int {
	track, sector, err := s.trackSector(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}

	data, err := s.ctl.ReadSector(s.target, track, sector)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if data == nil {
		return s.errorf("Track %d sector %d not found", track, sector)
	}

	fmt.Fprintf(s.out, "Track %d sector %d:\n", track, sector)
	disk.Dump(s.out, data)
	return shellOK
}

func shellWrite(s *session, args []string) int {
	track, sector, err := s.trackSector(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}

	data, err := afero.ReadFile(s.fs, args[2])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if len(data) > disk.STD_BYTES_PER_SECTOR {
		return s.errorf("%s is %d bytes, a sector holds %d", args[2], len(data), disk.STD_BYTES_PER_SECTOR)
	}
	buf := make([]byte, disk.STD_BYTES_PER_SECTOR)
	copy(buf, data)

	if err := s.ctl.WriteSector(s.target, track, sector, buf); err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	fmt.Fprintf(s.out, "Wrote track %d sector %d\n", track, sector)
	return shellOK
}

func shellExport(s *session, args []string) int {
	d, err := s.driveArg(args[:1])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if !d.HasDisk() {
		return s.errorf("Drive %d is empty", d.Number())
	}
	if err := disk.Save(s.fs, args[1], d.Image()); err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	fmt.Fprintf(s.out, "Exported drive %d to %s\n", d.Number(), args[1])
	return shellOK
}

func shellSave(s *session, args []string) int {
	d, _ := s.ctl.Drive(s.target)
	path := s.paths[s.target-1]
	if path == "" {
		return s.errorf("Drive %d was not mounted from a file, use export", s.target)
	}

	format := s.formats[s.target-1]
	if format == disk.FormatNone {
		format = s.fileFormat(path)
	}
	if format == disk.FormatNone {
		format = d.Format()
	}

	data, err := d.Image().Encode(format)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	loggy.Get(loggy.SHELL).Logf("Saved drive %d to %s as %s", s.target, path, format)
	d.ClearDirty()
	fmt.Fprintf(s.out, "Updated disk %s\n", path)
	return shellOK
}

func (s *session) setLocked(args []string, locked bool) int {
	d, err := s.driveArg(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	d.SetReadOnly(locked)
	fmt.Fprintf(s.out, "Drive %d locked: %v\n", d.Number(), locked)
	return shellOK
}

func shellLock(s *session, args []string) int {
	return s.setLocked(args, true)
}

func shellUnlock(s *session, args []string) int {
	return s.setLocked(args, false)
}

func shellClean(s *session, args []string) int {
	d, err := s.driveArg(args)
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	d.ClearDirty()
	return shellOK
}

func switchAddr(arg string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "$"), 16, 8)
	if err != nil || v > 0xf {
		return 0, fmt.Errorf("invalid switch: %s", arg)
	}
	return uint16(SLOT6_IO + v), nil
}

func shellPhase(s *session, args []string) int {
	phase, err := parseNumber(args[0])
	if err != nil || phase < 0 || phase > 3 {
		return s.errorf("invalid phase: %s", args[0])
	}

	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "1":
		on = true
	case "off", "0":
	default:
		return s.errorf("expected on or off, got %s", args[1])
	}

	addr := SLOT6_IO + phase<<1
	if on {
		addr++
	}
	s.ctl.LoadByte(uint16(addr))

	d, _ := s.ctl.Drive(s.ctl.SelectedDrive())
	fmt.Fprintf(s.out, "Drive %d: track %d (half track %d)\n", d.Number(), d.Track(), d.Position())
	return shellOK
}

func shellPeek(s *session, args []string) int {
	addr, err := switchAddr(args[0])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	count := 1
	if len(args) > 1 {
		if count, err = parseNumber(args[1]); err != nil || count < 1 {
			return s.errorf("invalid count: %s", args[1])
		}
	}

	values := make([]string, count)
	for i := range values {
		values[i] = fmt.Sprintf("%.2X", s.ctl.LoadByte(addr))
	}
	fmt.Fprintf(s.out, "$%.4X: %s\n", addr, strings.Join(values, " "))
	return shellOK
}

func shellPoke(s *session, args []string) int {
	addr, err := switchAddr(args[0])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	v, err := parseNumber(args[1])
	if err != nil || v < 0 || v > 0xff {
		return s.errorf("invalid value: %s", args[1])
	}
	s.ctl.StoreByte(addr, byte(v))
	return shellOK
}

type savedSession struct {
	Paths [drive.DRIVES]string `json:"paths"`
	State *drive.State         `json:"state"`
}

func shellSaveState(s *session, args []string) int {
	data, err := json.Marshal(&savedSession{Paths: s.paths, State: s.ctl.State()})
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	if err := afero.WriteFile(s.fs, args[0], data, 0644); err != nil {
		return s.errorf("Error: %s", err.Error())
	}
	fmt.Fprintf(s.out, "Saved state to %s\n", args[0])
	return shellOK
}

func shellLoadState(s *session, args []string) int {
	data, err := afero.ReadFile(s.fs, args[0])
	if err != nil {
		return s.errorf("Error: %s", err.Error())
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return s.errorf("Error: %s: %s", args[0], err.Error())
	}
	if saved.State == nil {
		return s.errorf("Error: %s", drive.ErrBadState.Error())
	}

	if err := s.ctl.Restore(saved.State); err != nil {
		return s.errorf("Error: %s: %s", args[0], err.Error())
	}
	s.paths = saved.Paths
	s.formats = [drive.DRIVES]disk.Format{}
	fmt.Fprintf(s.out, "Restored state from %s\n", args[0])
	return shellOK
}

func shellHelp(s *session, args []string) int {

	if len(args) == 0 {
		keys := make([]string, 0, len(commandList))
		for k := range commandList {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			info := commandList[k]
			fmt.Fprintf(s.out, "%-10s %s\n", info.Name, info.Description)
		}
		return shellOK
	}

	command := strings.ToLower(args[0])
	details, ok := commandList[command]
	if !ok || details.Text == nil {
		return s.errorf("No help available for %s", command)
	}
	for _, l := range details.Text {
		fmt.Fprintln(s.out, l)
	}
	return shellOK
}
