// Copyright 2025 Synopsys, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Report accumulates per-analyzer summary files in insertion order and
// concatenates them into the final report file.
type Report struct {
	path  string
	files []string
}

// NewReport returns a report that will be written to path.
func NewReport(path string) *Report {
	return &Report{path: path}
}

// Append records one summary file. Called once per successful analyzer.
func (r *Report) Append(file string) {
	r.files = append(r.files, file)
}

// Path returns the report's destination path.
func (r *Report) Path() string {
	return r.path
}

// Generate concatenates the summary files, each with a trailing blank line,
// and writes the report atomically (temp file + rename).
func (r *Report) Generate() error {
	var sb strings.Builder
	for _, file := range r.files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		sb.Write(content)
		sb.WriteString("\n")
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
