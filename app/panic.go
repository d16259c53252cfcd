package app

import (
	"fmt"
	"strings"

	"capsule/capsuleos/kernel"

	"go.uber.org/zap"
)

// faultReporter queues a one-line fault notice behind the text the process
// already printed and writes the stack to the debug log.
func faultReporter(out kernel.DebugWriter, log *zap.Logger) func(kernel.PanicInfo) {
	return func(info kernel.PanicInfo) {
		if out != nil {
			out.WriteLineString(fmt.Sprintf("capsule fault: process=%s pid=%s panic=%v", info.Name, info.Process, info.Value))
		}
		if len(info.Stack) == 0 || !log.Core().Enabled(zap.DebugLevel) {
			return
		}
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			log.Debug(line, zap.String("process", info.Name))
		}
	}
}
