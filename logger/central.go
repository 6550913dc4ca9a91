// This file is part of Soundshell.
//
// Soundshell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Soundshell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Soundshell.  If not, see <https://www.gnu.org/licenses/>.

// Package logger is the central log for the application. There is no need
// for more than one log so the package level functions operate on a single
// logger instance.
//
// Log entries are made of a tag and a detail string. The tag groups entries
// by the subsystem that made them (eg. "sdlaudio", "latency"). Consecutive
// duplicate entries are collapsed into a single entry with a repeat count,
// which matters for a real-time audio system where the same condition can
// recur thousands of times a second.
//
// Logging never happens on the real-time render path. The audio callback
// only mutates atomic counters; anything worth logging is picked up and
// logged by the control-plane functions that inspect those counters.
package logger

import (
	"fmt"
	"io"
)

// only allowing one central log for the entire application.
var central *logger

// maximum number of entries in the central logger.
const maxCentral = 256

func init() {
	central = newLogger(maxCentral)
}

// Log adds an entry to the central logger.
func Log(tag, detail string) {
	central.log(tag, detail)
}

// Logf adds a formatted entry to the central logger.
func Logf(tag, detail string, args ...interface{}) {
	central.log(tag, fmt.Sprintf(detail, args...))
}

// Clear all entries from central logger.
func Clear() {
	central.clear()
}

// Write contents of central logger to io.Writer.
func Write(output io.Writer) {
	central.write(output)
}

// Tail writes the last N entries to io.Writer.
func Tail(output io.Writer, number int) {
	central.tail(output, number)
}

// SetEcho to echo new entries to io.Writer as they arrive. A nil argument
// turns echoing off.
func SetEcho(output io.Writer) {
	central.setEcho(output)
}
