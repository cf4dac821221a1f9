package viewer

// Op identifies a user command, independent of the input binding that
// produced it.
type Op int

const (
	OpNone Op = iota
	OpTogglePlay
	OpToggleRecord
	OpToggleWait
	OpToggleDiscard
	OpSkip       // Arg: signed frame delta
	OpRecordOne
	OpToggleStream // Arg: stream index
	OpScreenshot   // Arg: stream index
	OpQuit
)

// Command is one dispatched user action.
type Command struct {
	Op  Op
	Arg int
}

// Dispatch executes a command against the viewer.
func (v *Viewer) Dispatch(cmd Command) {
	switch cmd.Op {
	case OpTogglePlay:
		v.TogglePlay()
	case OpToggleRecord:
		v.ToggleRecord()
	case OpToggleWait:
		v.ToggleWaitForFrames()
	case OpToggleDiscard:
		v.ToggleDiscardBufferedFrames()
	case OpSkip:
		v.Skip(cmd.Arg)
	case OpRecordOne:
		v.RecordOneFrame()
	case OpToggleStream:
		v.ToggleStream(cmd.Arg)
	case OpScreenshot:
		v.SaveFrame(cmd.Arg)
	case OpQuit:
		v.Quit()
	}
}

// screenshotKeys are the shifted digit keys, one per stream.
const screenshotKeys = "!@#$%^&*("

// KeyCommand maps a pressed key to a command. skipStep is the frame delta
// of the large skip keys. The boolean is false for unbound keys.
func KeyCommand(key rune, skipStep int) (Command, bool) {
	switch key {
	case ' ':
		return Command{Op: OpTogglePlay}, true
	case 'r':
		return Command{Op: OpToggleRecord}, true
	case 'w':
		return Command{Op: OpToggleWait}, true
	case 'd':
		return Command{Op: OpToggleDiscard}, true
	case ',':
		return Command{Op: OpSkip, Arg: -1}, true
	case '.':
		return Command{Op: OpSkip, Arg: +1}, true
	case '<':
		return Command{Op: OpSkip, Arg: -skipStep}, true
	case '>':
		return Command{Op: OpSkip, Arg: +skipStep}, true
	case '0':
		return Command{Op: OpRecordOne}, true
	case 'q', 'Q', 0x1b, 0x03: // q, Esc, Ctrl-C
		return Command{Op: OpQuit}, true
	}

	if key >= '1' && key <= '9' {
		return Command{Op: OpToggleStream, Arg: int(key - '1')}, true
	}
	for i, k := range screenshotKeys {
		if key == k {
			return Command{Op: OpScreenshot, Arg: i}, true
		}
	}

	return Command{}, false
}
