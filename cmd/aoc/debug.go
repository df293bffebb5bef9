package main

import (
	"bufio"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// newDebugLogger returns a trace logger writing to out when enabled is
// true, or nil otherwise — non-debug runs never touch logrus at all.
func newDebugLogger(enabled bool, out io.Writer) *logrus.Logger {
	if !enabled {
		return nil
	}
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.Out = out
	return log
}

var stdin = bufio.NewReader(os.Stdin)

// stdinReader wires the VM's `read` expression to the process's
// real standard input — only the CLI does this; the embedded Run entry
// point deliberately leaves VM.In nil (see vm.VM.read).
func stdinReader() *bufio.Reader {
	return stdin
}
