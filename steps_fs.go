// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// MkdirStep creates a directory (and its parents) if missing.
type MkdirStep struct {
	Path string
}

func (s *MkdirStep) ShortName() string { return "mkdir" }
func (s *MkdirStep) Describe() string  { return fmt.Sprintf("mkdir -p %s", s.Path) }
func (s *MkdirStep) RuleKeyParams() map[string]string {
	return map[string]string{"path": s.Path}
}
func (s *MkdirStep) Execute(ctx context.Context) StepResult {
	return StepResult{Err: os.MkdirAll(s.Path, 0o755)}
}

// WriteFileStep writes literal bytes to a path, creating parent directories
// as needed. Used both for generated sources (e.g. the python-test
// test-modules list) and for success-marker hash files.
type WriteFileStep struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

func (s *WriteFileStep) ShortName() string { return "write-file" }
func (s *WriteFileStep) Describe() string  { return fmt.Sprintf("write %s (%d bytes)", s.Path, len(s.Content)) }
func (s *WriteFileStep) RuleKeyParams() map[string]string {
	return map[string]string{"path": s.Path}
}
func (s *WriteFileStep) Execute(ctx context.Context) StepResult {
	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}
	if dir := filepath.Dir(s.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StepResult{Err: err}
		}
	}
	return StepResult{Err: os.WriteFile(s.Path, s.Content, mode)}
}

// RemoveStep deletes a file, ignoring a not-exist error.
type RemoveStep struct {
	Path string
}

func (s *RemoveStep) ShortName() string { return "remove" }
func (s *RemoveStep) Describe() string  { return fmt.Sprintf("rm -f %s", s.Path) }
func (s *RemoveStep) RuleKeyParams() map[string]string {
	return map[string]string{"path": s.Path}
}
func (s *RemoveStep) Execute(ctx context.Context) StepResult {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return StepResult{Err: err}
	}
	return StepResult{}
}

// RepackZipStep rewrites a zip archive, optionally forcing named entries to
// be stored (STOREd) rather than deflated — used to make the dex entry of a
// temp jar uncompressed before xz handles whole-file compression.
type RepackZipStep struct {
	Src, Dst   string
	StoreEntry func(name string) bool // nil = compress everything as-is
}

func (s *RepackZipStep) ShortName() string { return "repack-zip" }
func (s *RepackZipStep) Describe() string  { return fmt.Sprintf("repack %s -> %s", s.Src, s.Dst) }
func (s *RepackZipStep) RuleKeyParams() map[string]string {
	return map[string]string{"src": s.Src, "dst": s.Dst}
}
func (s *RepackZipStep) Execute(ctx context.Context) StepResult {
	r, err := zip.OpenReader(s.Src)
	if err != nil {
		return StepResult{Err: err}
	}
	defer r.Close()

	if dir := filepath.Dir(s.Dst); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StepResult{Err: err}
		}
	}
	out, err := os.Create(s.Dst)
	if err != nil {
		return StepResult{Err: err}
	}
	defer out.Close()

	w := zip.NewWriter(out)
	defer w.Close()

	for _, f := range r.File {
		method := f.Method
		if s.StoreEntry != nil && s.StoreEntry(f.Name) {
			method = zip.Store
		}
		hdr := f.FileHeader
		hdr.Method = method
		dstW, err := w.CreateHeader(&hdr)
		if err != nil {
			return StepResult{Err: err}
		}
		srcR, err := f.Open()
		if err != nil {
			return StepResult{Err: err}
		}
		_, copyErr := io.Copy(dstW, srcR)
		srcR.Close()
		if copyErr != nil {
			return StepResult{Err: copyErr}
		}
	}
	return StepResult{}
}

// XZCompressStep runs an external xz compressor over a file, in place
// (producing path+".xz") unless Dst is set.
type XZCompressStep struct {
	Src, Dst string
	Level    int
	XZPath   string // defaults to "xz"
}

func (s *XZCompressStep) ShortName() string { return "xz" }
func (s *XZCompressStep) Describe() string  { return fmt.Sprintf("xz -%d %s", s.Level, s.Src) }
func (s *XZCompressStep) RuleKeyParams() map[string]string {
	return map[string]string{"src": s.Src, "level": fmt.Sprint(s.Level)}
}
func (s *XZCompressStep) Execute(ctx context.Context) StepResult {
	tool := s.XZPath
	if tool == "" {
		tool = "xz"
	}
	dst := s.Dst
	if dst == "" {
		dst = s.Src + ".xz"
	}
	level := s.Level
	if level <= 0 {
		level = 6
	}
	cmd := exec.CommandContext(ctx, tool, fmt.Sprintf("-%d", level), "-c", s.Src)
	out, err := os.Create(dst)
	if err != nil {
		return StepResult{Err: err}
	}
	defer out.Close()
	cmd.Stdout = out
	return StepResult{Err: cmd.Run()}
}

// ConcatStep concatenates several input files into a single output, in the
// order given — used for the solid-compression (XZS) phase.
type ConcatStep struct {
	Inputs []string
	Dst    string
}

func (s *ConcatStep) ShortName() string { return "concat" }
func (s *ConcatStep) Describe() string  { return fmt.Sprintf("cat %v > %s", s.Inputs, s.Dst) }
func (s *ConcatStep) RuleKeyParams() map[string]string {
	return map[string]string{"dst": s.Dst, "count": fmt.Sprint(len(s.Inputs))}
}
func (s *ConcatStep) Execute(ctx context.Context) StepResult {
	if dir := filepath.Dir(s.Dst); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StepResult{Err: err}
		}
	}
	out, err := os.Create(s.Dst)
	if err != nil {
		return StepResult{Err: err}
	}
	defer out.Close()
	for _, in := range s.Inputs {
		if err := ctx.Err(); err != nil {
			return StepResult{Err: err}
		}
		f, err := os.Open(in)
		if err != nil {
			return StepResult{Err: err}
		}
		_, copyErr := io.Copy(out, f)
		f.Close()
		if copyErr != nil {
			return StepResult{Err: copyErr}
		}
	}
	return StepResult{}
}

// RunProgramStep invokes an opaque external program — the dexer, a zip
// scrubber, or any language-specific tool wrapper. Its CLI is not part of
// this package's contract; only the process in/out file contract matters.
type RunProgramStep struct {
	Name string // short-name override, e.g. "dex", "zip-scrub", "meta"
	Argv []string
	Env  []string
	Dir  string
}

func (s *RunProgramStep) ShortName() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Argv) > 0 {
		return filepath.Base(s.Argv[0])
	}
	return "run"
}
func (s *RunProgramStep) Describe() string { return fmt.Sprintf("%v", s.Argv) }
func (s *RunProgramStep) RuleKeyParams() map[string]string {
	return map[string]string{"argv": fmt.Sprint(s.Argv)}
}
func (s *RunProgramStep) Execute(ctx context.Context) StepResult {
	if len(s.Argv) == 0 {
		return StepResult{Err: fmt.Errorf("run-program step %q: empty argv", s.ShortName())}
	}
	cmd := exec.CommandContext(ctx, s.Argv[0], s.Argv[1:]...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = s.Env
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return StepResult{Err: fmt.Errorf("%s: %w: %s", s.ShortName(), err, string(out))}
	}
	return StepResult{}
}
