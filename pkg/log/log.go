// Copyright 2026 The Hugepaa Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides the leveled logger used throughout hugepaa, in the
// style of gVisor's pkg/log: a small set of package-level Xf functions
// backed by a swappable Emitter, gated by a minimum level.
package log

import (
	"fmt"
	"os"
	"time"
)

// Level is a log severity.
type Level int

// Levels, ordered least to most severe.
const (
	Debug Level = iota
	Info
	Warning
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// Emitter writes a single rendered log line.
type Emitter interface {
	Emit(level Level, line string)
}

// WriterEmitter emits to an io.Writer (os.Stderr by default).
type WriterEmitter struct {
	W interface {
		Write([]byte) (int, error)
	}
}

// Emit implements Emitter.Emit.
func (w WriterEmitter) Emit(level Level, line string) {
	fmt.Fprintf(w.W, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339Nano), level, line)
}

var (
	minLevel = Info
	emitter  Emitter = WriterEmitter{W: os.Stderr}
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) { minLevel = l }

// SetEmitter replaces the destination for rendered log lines.
func SetEmitter(e Emitter) { emitter = e }

// IsLogging reports whether a message at level l would currently be
// emitted, so callers can skip expensive formatting.
func IsLogging(l Level) bool { return l >= minLevel }

func logf(l Level, format string, v ...any) {
	if !IsLogging(l) {
		return
	}
	emitter.Emit(l, fmt.Sprintf(format, v...))
}

// Debugf logs at Debug level.
func Debugf(format string, v ...any) { logf(Debug, format, v...) }

// Infof logs at Info level.
func Infof(format string, v ...any) { logf(Info, format, v...) }

// Warningf logs at Warning level.
func Warningf(format string, v ...any) { logf(Warning, format, v...) }
