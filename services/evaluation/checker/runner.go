// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package checker measures internal type consistency of an annotated
// repository variant by running an external static type checker and
// counting its diagnostics.
//
// The checker is a black-box oracle: this package only invokes it,
// parses its output lines, and applies a filter policy to derive a
// comparable error count. Provisioning the execution environment for a
// repository is an external collaborator's responsibility.
package checker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner invokes the external checker on a repository variant.
//
// Description:
//
//	Runner is the injected synchronous capability around the checker
//	subprocess: substitutable with a fake in tests. A non-nil error
//	always means "consistency unavailable for this variant".
type Runner interface {
	// Check runs the checker against the variant rooted at repoDir and
	// returns the parsed diagnostics.
	Check(ctx context.Context, repoDir string) (*Result, error)
}

// =============================================================================
// COMMAND RUNNER
// =============================================================================

// CommandRunner runs a checker binary as a subprocess.
//
// Thread Safety: Safe for concurrent use; each Check owns its own
// subprocess.
type CommandRunner struct {
	// Command is the checker executable name (e.g., "mypy").
	Command string

	// Args are passed before the variant directory.
	Args []string

	// Timeout bounds one invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds a checker invocation when none is configured.
// Whole-repository checks are slow; this is deliberately generous.
const DefaultTimeout = 10 * time.Minute

// DefaultCommandRunner returns a runner for mypy with the flags the
// benchmark relies on: error codes in output, no site packages.
func DefaultCommandRunner() *CommandRunner {
	return &CommandRunner{
		Command: "mypy",
		Args:    []string{"--show-error-codes", "--no-site-packages", "--no-incremental"},
		Timeout: DefaultTimeout,
	}
}

// Available reports whether the checker binary is in PATH.
func (r *CommandRunner) Available() bool {
	_, err := exec.LookPath(r.Command)
	return err == nil
}

// Check runs the checker against one variant directory.
//
// Description:
//
//	Invokes the subprocess with the configured timeout, captures
//	stdout, and parses diagnostics. Checkers exit non-zero when they
//	find errors, so a non-zero exit with parseable stdout is a
//	successful check; only a silent failure or a timeout maps to an
//	error.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	repoDir - Root of the annotated variant to check.
//
// Outputs:
//
//	*Result - Parsed diagnostics and duration.
//	error - ErrCheckerNotInstalled, ErrCheckerTimeout, or
//	        ErrCheckerFailed. All mean "consistency unavailable".
//
// Thread Safety: Safe for concurrent use.
func (r *CommandRunner) Check(ctx context.Context, repoDir string) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}
	if repoDir == "" {
		return nil, fmt.Errorf("%w: repoDir must not be empty", ErrInvalidInput)
	}
	if !r.Available() {
		return nil, fmt.Errorf("%w: %s", ErrCheckerNotInstalled, r.Command)
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, len(r.Args), len(r.Args)+1)
	copy(args, r.Args)
	args = append(args, ".")

	start := time.Now()
	cmd := exec.CommandContext(cmdCtx, r.Command, args...)
	cmd.Dir = repoDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		recordCheckMetrics(ctx, r.Command, elapsed, 0, false)
		return nil, fmt.Errorf("%w: %s after %s", ErrCheckerTimeout, r.Command, timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Checkers exit 1 when diagnostics exist. Fail only when there is
	// nothing on stdout to parse.
	if err != nil && stdout.Len() == 0 {
		recordCheckMetrics(ctx, r.Command, elapsed, 0, false)
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCheckerFailed, r.Command, err, firstLine(stderr.Bytes()))
	}

	diags := ParseOutput(stdout.Bytes())
	recordCheckMetrics(ctx, r.Command, elapsed, len(diags), true)

	slog.Debug("Checker completed",
		slog.String("command", r.Command),
		slog.String("repo_dir", repoDir),
		slog.Duration("duration", elapsed),
		slog.Int("diagnostics", len(diags)),
	)

	return &Result{Diagnostics: diags, Duration: elapsed}, nil
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
