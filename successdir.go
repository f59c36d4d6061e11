// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
)

// SuccessDir is the on-disk mapping from output file name to a one-line hash
// file: the presence of <dir>/<outputName> containing hash H means "the
// last successful run produced this output from inputs hashing to H".
// Unlike a single JSON state blob covering the whole build, one small file
// per output matches the documented on-disk layout exactly.
type SuccessDir struct {
	Root string
}

// NewSuccessDir wraps root as a SuccessDir. The directory need not exist yet.
func NewSuccessDir(root string) *SuccessDir {
	return &SuccessDir{Root: root}
}

func (d *SuccessDir) path(outputName string) string {
	return filepath.Join(d.Root, outputName)
}

// Read returns the recorded hash for outputName and true, or "" and false if
// no marker file exists or it cannot be read.
func (d *SuccessDir) Read(outputName string) (string, bool) {
	f, err := os.Open(d.path(outputName))
	if err != nil {
		return "", false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

// Write records hash as the one-line success marker for outputName,
// creating the success directory if needed. This is always the last step of
// a fan-out pipeline: a partial failure must leave the marker absent so the
// next run rebuilds unconditionally.
func (d *SuccessDir) Write(outputName, hash string) error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.path(outputName), []byte(hash+"\n"), 0o644)
}

// WriteStep returns a Step that performs Write — used so the success-marker
// write participates in a pipeline's ordered step list like any other step.
func (d *SuccessDir) WriteStep(outputName, hash string) Step {
	return &successMarkerStep{dir: d, outputName: outputName, hash: hash}
}

type successMarkerStep struct {
	dir        *SuccessDir
	outputName string
	hash       string
}

func (s *successMarkerStep) ShortName() string { return "record-success" }
func (s *successMarkerStep) Describe() string {
	return "record success hash for " + s.outputName
}
func (s *successMarkerStep) RuleKeyParams() map[string]string {
	return map[string]string{"outputName": s.outputName}
}
func (s *successMarkerStep) Execute(ctx context.Context) StepResult {
	return StepResult{Err: s.dir.Write(s.outputName, s.hash)}
}
