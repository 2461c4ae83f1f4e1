package log

// A LogContext adds fields to all log entries, whatever the module. The
// emulator uses it to stamp entries with the current frame, scanline and dot.
type LogContext interface {
	AddLogContext(entry *EntryZ)
}

var contexts []LogContext

func AddContext(ctx LogContext) {
	contexts = append(contexts, ctx)
}

func RemoveContext(ctx LogContext) {
	for i, c := range contexts {
		if c == ctx {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}
