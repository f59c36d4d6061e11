// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/foundryci/forge/internal/log"
)

// MultimapSupplier lazily (and, once called, memoized) materializes the
// output→inputs multimap the planner fans out over. Construction may be
// deferred until after upstream rules are resolved.
type MultimapSupplier func() (map[string][]string, error)

// InputHashProvider returns the pre-recorded content hash of an input path.
// It is expected to be a memoized snapshot, not a live stat — the planner
// never re-hashes an input mid-run.
type InputHashProvider func(input string) (string, bool)

// DexOptions carries the action-specific knobs the fan-out planner threads
// through to the steps it emits: heap caps, compression level, which dexer
// binary to invoke, desugar options, the minimum platform API level, and
// extra classpath-only inputs needed for desugaring but not dexed directly.
type DexOptions struct {
	DexerPath          string
	HeapCapMB          int
	XZLevel            int
	MinPlatformVersion int
	Desugar            bool
	ClasspathExtras    []string
}

// PlannerConfig wires together everything the fan-out planner needs.
type PlannerConfig struct {
	Multimap          MultimapSupplier
	InputHashes       InputHashProvider
	SuccessDir        *SuccessDir
	SecondaryOutDir   string // optional; pruned of stale siblings after a run
	Parallelism       int    // 0 = use RecommendedParallelism()
	Options           DexOptions
}

// RecommendedParallelism estimates physical core count on the premise that
// the bottleneck is CPU-bound external tooling, not I/O.
func RecommendedParallelism() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

// PlanResult is the outcome of one Planner.Run.
type PlanResult struct {
	Produced []string // output paths (re)built by this run
	Cached   []string // output paths that needed no step execution
	Err      error    // first classified failure, or nil
}

// Planner is the fan-out caching planner illustrated by the parallel
// dexing engine: per-output input hashing, on-disk success markers,
// conditional re-execution, and post-processing (repack, compress,
// concatenate).
type Planner struct {
	cfg PlannerConfig
}

// NewPlanner returns a Planner over cfg.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{cfg: cfg}
}

type outputPipeline struct {
	output     string // declared output key (multimap key, success-marker name)
	realOutput string // actual file this pipeline leaves on disk
	inputs     []string
	newHash    string
	steps      []Step
	isXZS      bool
}

// Run materializes the multimap, decides per-output freshness against the
// success directory, builds and executes the step pipelines for stale
// outputs under a bounded-parallelism executor, runs the XZS solid-
// compression phase, and prunes stale secondary-output siblings.
//
// Determinism: the set of steps produced depends only on the input
// multimap, the input hashes, and the success-directory contents — never
// on wall-clock time or host CPU count.
func (p *Planner) Run(ctx context.Context) PlanResult {
	multimap, err := p.cfg.Multimap()
	if err != nil {
		return PlanResult{Err: fmt.Errorf("materializing output multimap: %w", err)}
	}

	outputs := make([]string, 0, len(multimap))
	for out := range multimap {
		outputs = append(outputs, out)
	}
	sort.Strings(outputs) // deterministic iteration, not a correctness requirement

	var (
		produced  []string
		cached    []string
		mu        sync.Mutex
		pipelines []*outputPipeline

		// allHashes/allRealOutputs cover every declared output, cached or
		// not — the solid-compression phase needs full group membership
		// even when only some members were rebuilt this run.
		allHashes      = make(map[string]string, len(outputs))
		allRealOutputs = make(map[string]string, len(outputs))
		allIsXZS       = make(map[string]bool, len(outputs))
	)

	for _, out := range outputs {
		inputs := append([]string(nil), multimap[out]...)
		sort.Strings(inputs)

		newHash, err := p.hashInputs(inputs)
		if err != nil {
			return PlanResult{Err: err}
		}
		allHashes[out] = newHash
		allRealOutputs[out] = realOutputPath(out)
		allIsXZS[out] = strings.HasSuffix(out, ".dex.jar.xzs")

		outputName := filepath.Base(out)
		prevHash, hashFileExists := p.cfg.SuccessDir.Read(outputName)
		_, statErr := os.Stat(realOutputPath(out))
		outputExists := statErr == nil

		if outputExists && hashFileExists && newHash == prevHash {
			cached = append(cached, allRealOutputs[out])
			continue
		}

		steps, isXZS, err := p.buildPipeline(out, inputs, newHash)
		if err != nil {
			return PlanResult{Err: err}
		}
		pipelines = append(pipelines, &outputPipeline{
			output: out, realOutput: allRealOutputs[out], inputs: inputs, newHash: newHash, steps: steps, isXZS: isXZS,
		})
	}

	if len(pipelines) > 0 {
		parallelism := p.cfg.Parallelism
		if parallelism <= 0 {
			parallelism = RecommendedParallelism()
		}
		sem := semaphore.NewWeighted(int64(parallelism))
		group, gctx := errgroup.WithContext(ctx)

		for _, pipe := range pipelines {
			pipe := pipe
			group.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)

				// Pipelines already holding a permit run under the caller's
				// ctx, so a sibling's failure lets them finish; only those
				// still waiting on the semaphore are abandoned.
				runner := StepRunner{OwningTarget: pipe.output}
				if err := runner.Run(ctx, pipe.steps); err != nil {
					log.L().Warnw("fan-out pipeline failed", "output", pipe.output, "error", err)
					return err
				}
				mu.Lock()
				produced = append(produced, pipe.realOutput)
				mu.Unlock()
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return PlanResult{Produced: produced, Cached: cached, Err: p.classifyFailure(err)}
		}
	}

	// Solid-compression phase: group every declared XZS output (cached or
	// freshly rebuilt this run) and re-concatenate only the groups whose
	// membership hash changed — this keeps a second run with unchanged
	// inputs free of any step execution even when a group is only
	// partially rebuilt.
	var xzsGroupOutputs []string
	for out, isXZS := range allIsXZS {
		if isXZS {
			xzsGroupOutputs = append(xzsGroupOutputs, out)
		}
	}
	sort.Strings(xzsGroupOutputs)
	if len(xzsGroupOutputs) > 0 {
		blobs, err := p.runSolidCompression(ctx, xzsGroupOutputs, allHashes, allRealOutputs)
		if err != nil {
			return PlanResult{Produced: produced, Cached: cached, Err: err}
		}
		produced = append(produced, blobs...)
	}

	producedSet := make([]string, 0, len(produced)+len(cached))
	producedSet = append(producedSet, produced...)
	producedSet = append(producedSet, cached...)

	if p.cfg.SecondaryOutDir != "" && len(producedSet) > 0 {
		if err := pruneStaleSiblings(p.cfg.SecondaryOutDir, producedSet); err != nil {
			return PlanResult{Produced: produced, Cached: cached, Err: err}
		}
	}

	return PlanResult{Produced: produced, Cached: cached}
}

// hashInputs computes sha1(concat(inputHashes[input] for input in sorted
// inputs)). A missing hash entry is a programmer error: the caller promised
// a memoized snapshot covering every declared input.
func (p *Planner) hashInputs(sortedInputs []string) (string, error) {
	h := sha1.New()
	for _, in := range sortedInputs {
		hash, ok := p.cfg.InputHashes(in)
		if !ok {
			return "", fmt.Errorf("programmer error: no recorded hash for input %q", in)
		}
		h.Write([]byte(hash))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// buildPipeline emits the ordered step list for one output, keyed off the
// output's suffix. The write-success-marker step is always last.
func (p *Planner) buildPipeline(output string, inputs []string, newHash string) ([]Step, bool, error) {
	outputName := filepath.Base(output)
	successStep := p.cfg.SuccessDir.WriteStep(outputName, newHash)

	switch {
	case isPlainDexSuffix(output):
		steps := []Step{p.dexStep(output, inputs)}
		if strings.HasSuffix(output, ".jar") {
			steps = append(steps, p.metaAnalysisStep(output), p.zipScrubStep(output))
		}
		return append(steps, successStep), false, nil

	case strings.HasSuffix(output, ".dex.jar.xz"):
		tmp := output + ".tmp-" + uuid.NewString() + ".jar"
		repacked := strings.TrimSuffix(output, ".xz")
		steps := []Step{
			p.dexStep(tmp, inputs),
			&RepackZipStep{Src: tmp, Dst: repacked, StoreEntry: isDexEntry},
			&RemoveStep{Path: tmp},
			p.metaAnalysisStep(repacked),
			&XZCompressStep{Src: repacked, Dst: output, Level: p.cfg.Options.XZLevel, XZPath: xzToolOrDefault(p.cfg.Options)},
		}
		return append(steps, successStep), false, nil

	case strings.HasSuffix(output, ".dex.jar.xzs"):
		tmp := output + ".tmp-" + uuid.NewString() + ".jar"
		repacked := strings.TrimSuffix(output, ".xzs")
		steps := []Step{
			p.dexStep(tmp, inputs),
			&RepackZipStep{Src: tmp, Dst: repacked, StoreEntry: isDexEntry},
			&RemoveStep{Path: tmp},
			p.metaAnalysisStep(repacked),
			// Actual xz compression is deferred to the solid-concat phase:
			// this pipeline only produces the repacked jar.
		}
		return append(steps, successStep), true, nil

	default:
		return nil, false, fmt.Errorf("unknown output suffix for %q: expected .dex, raw, classes.dex, .dex.jar.xz, or .dex.jar.xzs", output)
	}
}

func (p *Planner) dexStep(output string, inputs []string) Step {
	argv := []string{dexerToolOrDefault(p.cfg.Options), "--out", output}
	if p.cfg.Options.HeapCapMB > 0 {
		argv = append(argv, "--heap-cap-mb", fmt.Sprint(p.cfg.Options.HeapCapMB))
	}
	if p.cfg.Options.MinPlatformVersion > 0 {
		argv = append(argv, "--min-sdk-version", fmt.Sprint(p.cfg.Options.MinPlatformVersion))
	}
	if p.cfg.Options.Desugar {
		argv = append(argv, "--desugar")
		for _, extra := range p.cfg.Options.ClasspathExtras {
			argv = append(argv, "--classpath", extra)
		}
	}
	argv = append(argv, inputs...)
	return &RunProgramStep{Name: "dex", Argv: argv}
}

func (p *Planner) metaAnalysisStep(jar string) Step {
	return &RunProgramStep{Name: "meta", Argv: []string{"dex-meta-analysis", "--jar", jar, "--out", jar + ".meta"}}
}

func (p *Planner) zipScrubStep(jar string) Step {
	return &RunProgramStep{Name: "zip-scrub", Argv: []string{"zip-scrub", jar}}
}

func dexerToolOrDefault(o DexOptions) string {
	if o.DexerPath != "" {
		return o.DexerPath
	}
	return "d8"
}

func xzToolOrDefault(o DexOptions) string {
	return "" // RunProgramStep/XZCompressStep default to "xz" on PATH
}

// realOutputPath returns the file this declared output resolves to on
// disk. For the XZS pipeline the declared output (e.g. "out/secondary-
// 1.dex.jar.xzs") is never itself written — only the repacked jar (".dex.
// jar") is, until the solid-compression phase produces the shared group
// blob under a different name entirely.
func realOutputPath(output string) string {
	if strings.HasSuffix(output, ".dex.jar.xzs") {
		return strings.TrimSuffix(output, ".xzs")
	}
	return output
}

func isPlainDexSuffix(output string) bool {
	base := filepath.Base(output)
	return strings.HasSuffix(output, ".dex") || base == "raw" || base == "classes.dex"
}

// isDexEntry reports whether name is the classes.dex entry of a jar — the
// one entry the xz-jar and xzs pipelines force to be STOREd rather than
// deflated, since xz will recompress the whole file.
func isDexEntry(name string) bool {
	return name == "classes.dex" || strings.HasSuffix(name, "/classes.dex")
}

// classifyFailure renders a specialized, actionable error when the first
// failure across the parallel batch is a dex-overflow; otherwise it passes
// the failure through unchanged.
func (p *Planner) classifyFailure(err error) error {
	var overflow *OverflowError
	if errors.As(err, &overflow) {
		return overflow
	}
	return err
}

// pruneStaleSiblings removes any file in dir that is not in produced and
// does not end in ".meta".
func pruneStaleSiblings(dir string, produced []string) error {
	keep := make(map[string]bool, len(produced))
	for _, p := range produced {
		keep[filepath.Base(p)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if keep[name] || strings.HasSuffix(name, ".meta") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// xzsGroupKey returns the dash-prefix grouping key for a produced XZS
// output, e.g. "out/secondary-1.dex.jar.xzs" -> "secondary".
func xzsGroupKey(output string) string {
	base := filepath.Base(output)
	base = strings.TrimSuffix(base, ".dex.jar.xzs")
	if idx := strings.LastIndexByte(base, '-'); idx >= 0 {
		return base[:idx]
	}
	return base
}

// runSolidCompression partitions every declared XZS output (cached or
// freshly rebuilt) by group key, and for each group whose membership hash
// has changed since the last run, concatenates the group's repacked jars
// into <prefix>.dex.jar.xzs and xz-compresses the result — sequentially,
// one group at a time, strictly after the dex phase has fully completed for
// all outputs. Groups whose membership hash is unchanged and whose blob
// already exists are left alone, which keeps a second run with no input
// changes free of any step execution even though solid-compression has no
// per-unit success marker of its own in the declared multimap.
func (p *Planner) runSolidCompression(ctx context.Context, xzsOutputs []string, hashes, realOutputs map[string]string) ([]string, error) {
	groups := make(map[string][]string)
	var groupOrder []string
	for _, out := range xzsOutputs {
		key := xzsGroupKey(out)
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], out)
	}
	sort.Strings(groupOrder)

	dir := filepath.Dir(xzsOutputs[0])
	var blobs []string
	for _, key := range groupOrder {
		members := groups[key]
		sort.Strings(members)

		h := sha1.New()
		memberJars := make([]string, len(members))
		for i, m := range members {
			h.Write([]byte(hashes[m]))
			memberJars[i] = realOutputs[m]
		}
		groupHash := hex.EncodeToString(h.Sum(nil))

		blobName := key + ".dex.jar.xzs"
		blob := filepath.Join(dir, blobName)
		blobs = append(blobs, blob)

		prevHash, hashFileExists := p.cfg.SuccessDir.Read(blobName)
		_, statErr := os.Stat(blob)
		if statErr == nil && hashFileExists && prevHash == groupHash {
			continue // group membership unchanged; blob already up to date
		}

		steps := []Step{
			&ConcatStep{Inputs: memberJars, Dst: blob + ".concat"},
			&XZCompressStep{Src: blob + ".concat", Dst: blob, Level: p.cfg.Options.XZLevel},
			&RemoveStep{Path: blob + ".concat"},
			p.cfg.SuccessDir.WriteStep(blobName, groupHash),
		}
		runner := StepRunner{OwningTarget: blob}
		if err := runner.Run(ctx, steps); err != nil {
			return nil, p.classifyFailure(err)
		}
	}
	return blobs, nil
}

// PlannerStep adapts a Planner to the Step interface, so a rule whose
// entire step list is "run the fan-out planner" (the dex-merge description)
// can return it as a single ordinary step rather than the caller special-
// casing planner-backed rules.
type PlannerStep struct {
	Planner *Planner
	Name    string // rule-key contribution; distinguishes rules sharing a Planner shape
}

func (s *PlannerStep) ShortName() string { return "plan" }
func (s *PlannerStep) Describe() string  { return "run fan-out planner: " + s.Name }
func (s *PlannerStep) RuleKeyParams() map[string]string {
	return map[string]string{"name": s.Name}
}

// Execute runs the planner and folds its result into a StepResult. The
// planner's own produced/cached accounting is not surfaced to the step
// runner — only success or the first classified failure is.
func (s *PlannerStep) Execute(ctx context.Context) StepResult {
	result := s.Planner.Run(ctx)
	return StepResult{Err: result.Err}
}
