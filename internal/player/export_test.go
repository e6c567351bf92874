package player

import (
	"io/fs"
	"os"
)

// EnvProvider exposes envProvider for tests.
type EnvProvider = envProvider

// StatFunc is the signature WithStat accepts.
type StatFunc = func(name string) (fs.FileInfo, error)

// Process returns the running video process handle, or nil.
func (l *Looper) Process() *os.Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.proc == nil {
		return nil
	}
	return l.proc.cmd.Process
}
