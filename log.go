package golpk

import "fmt"

// Logger receives solver output. *log.Logger satisfies it.
type Logger interface {
	Print(v ...interface{})
}

type noopLogger struct{}

func (noopLogger) Print(v ...interface{}) {}

// MsgLevel controls how much a solver writes to the problem's Logger.
type MsgLevel int

const (
	MsgOff MsgLevel = 0 // no output
	MsgErr MsgLevel = 1 // warnings and errors only
	MsgOn  MsgLevel = 2 // normal output
	MsgAll MsgLevel = 3 // full output
	MsgDbg MsgLevel = 4 // debug output
)

// msgf logs a formatted message if lev is allowed by max.
func (p *Problem) msgf(max, lev MsgLevel, format string, args ...interface{}) {
	if lev > max {
		return
	}
	p.logger.Print(fmt.Sprintf(format, args...))
}
