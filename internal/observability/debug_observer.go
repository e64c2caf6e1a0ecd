// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugObserver renders pipeline progress as an indented step tree on top of
// the standard JSON operation records. The CLI attaches one when -debug is
// set; the engine never constructs observers itself.
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer writing the step tree to writer
func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
}

// StartStep opens a nested step; the returned function closes it with the
// outcome and a short detail string.
func (d *DebugObserver) StartStep(component, step, filePath string) func(success bool, details string) {
	start := time.Now()
	fmt.Fprintf(d.writer, "%s▶ %s: %s (%s)\n", strings.Repeat("  ", d.indent), component, step, filePath)
	d.indent++

	return func(success bool, details string) {
		d.indent--
		mark := "✔"
		if !success {
			mark = "✖"
		}
		fmt.Fprintf(d.writer, "%s%s %s: %s (%dms) %s\n",
			strings.Repeat("  ", d.indent), mark, component, step, time.Since(start).Milliseconds(), details)
	}
}

// LogDetail prints one detail line under the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	fmt.Fprintf(d.writer, "%s· %s: %s\n", strings.Repeat("  ", d.indent), component, detail)
}

// LogMetric prints a named value under the current step
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	fmt.Fprintf(d.writer, "%s· %s: %s = %v\n", strings.Repeat("  ", d.indent), component, metric, value)
}
