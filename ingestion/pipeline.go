// Copyright 2025 Poiesic Systems
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


package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docindex/core"
)

// Pipeline dispatches file tasks onto a bounded worker pool.
type Pipeline struct {
	runner   *Runner
	pool     *ants.Pool
	progress io.Writer
	onResult func(*core.FileResult)
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize caps how many files are processed at once.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Tune(size)
		}
		return nil
	}
}

// WithProgress writes a progress line to w as files complete.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithResultHandler is called with each FileResult as it arrives. Calls are
// made from the collecting goroutine, one at a time.
func WithResultHandler(fn func(*core.FileResult)) Option {
	return func(p *Pipeline) error {
		p.onResult = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// antsLogger adapts slog to ants.Logger.
type antsLogger struct {
	logger *slog.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// NewPipeline creates a pipeline around runner.
func NewPipeline(runner *Runner, opts ...Option) (*Pipeline, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	p := &Pipeline{
		runner: runner,
		logger: slog.Default(),
	}

	// Created before options so WithPoolSize can tune it.
	handler := &antsLogger{logger: p.logger}
	pool, err := ants.NewPool(runtime.NumCPU(),
		ants.WithLogger(handler),
		ants.WithPanicHandler(func(v any) {
			handler.logger.Error("worker panic", "panic", v)
		}),
	)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline")
	handler.logger = p.logger

	return p, nil
}

// Size returns the worker pool capacity.
func (p *Pipeline) Size() int {
	return p.pool.Cap()
}

// Summary is the outcome of one batch.
type Summary struct {
	// Results are in completion order.
	Results   []*core.FileResult
	Succeeded int
	Failed    int
	Records   int
	Duration  time.Duration
}

// Manifests returns how many files produced at least one record.
func (s *Summary) Manifests() int {
	n := 0
	for _, r := range s.Results {
		if len(r.Records) > 0 {
			n++
		}
	}
	return n
}

// Run processes every task and returns once all of them have finished.
// It never stops early because a file failed; cancelling ctx makes the
// remaining tasks fail fast at their next blocking point.
func (p *Pipeline) Run(ctx context.Context, tasks []core.FileTask) *Summary {
	start := time.Now()
	summary := &Summary{Results: make([]*core.FileResult, 0, len(tasks))}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(tasks))
		tracker.Start()
	}

	results := make(chan *core.FileResult, len(tasks))
	for _, ft := range tasks {
		err := p.pool.Submit(func() {
			var res *core.FileResult
			defer func() {
				if res == nil {
					res = abandoned(ft, errPanic)
				}
				results <- res
			}()
			res = p.runner.Run(ctx, ft)
		})
		if err != nil {
			p.logger.Error("failed to dispatch file", "file", ft.FileName(), "err", err)
			results <- abandoned(ft, err)
		}
	}

	for range tasks {
		res := <-results
		summary.Results = append(summary.Results, res)
		summary.Records += len(res.Records)
		if res.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		if tracker != nil {
			tracker.Complete(res.Failed())
		}
		if p.onResult != nil {
			p.onResult(res)
		}
		p.logger.Debug("file completed", "file", res.Task.FileName(), "state", res.State.String(),
			"records", len(res.Records), "duration", res.Duration)
	}

	if tracker != nil {
		tracker.Finish()
	}
	summary.Duration = time.Since(start)

	p.logger.Info("batch complete",
		"files", len(tasks), "succeeded", summary.Succeeded, "failed", summary.Failed,
		"records", summary.Records, "duration", summary.Duration)
	return summary
}

// abandoned is the result of a task that never ran to completion.
func abandoned(ft core.FileTask, err error) *core.FileResult {
	return &core.FileResult{
		Task:        ft,
		State:       core.StateFailed,
		FailedStage: core.StageExtract,
		Failures:    []*core.StageError{core.NewStageError(core.StageExtract, ft.FileName(), err)},
	}
}

// Release releases the worker pool. The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
