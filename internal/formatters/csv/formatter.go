// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"boletim-scan/internal/engine"
	"boletim-scan/internal/formatters"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values, one row per recovered document"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(resp *engine.Response, options formatters.FormatterOptions) (string, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	header := []string{"series", "organization", "sub_organization", "title", "chars"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	series := resp.Series.String()
	for _, it := range resp.Items {
		for _, d := range it.Docs {
			row := []string{
				series,
				deref(it.Org),
				deref(d.SubOrg),
				deref(d.Title),
				strconv.Itoa(len(d.Text)),
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("error writing CSV row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("error flushing CSV output: %w", err)
	}
	return builder.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
