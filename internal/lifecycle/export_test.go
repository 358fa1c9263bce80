package lifecycle

import "os"

// SetSignal replaces the process signaller.
func (l *ScriptLauncher) SetSignal(fn func(pid int, sig os.Signal) error) {
	l.signal = fn
}
