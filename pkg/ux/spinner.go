// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner provides an animated progress indicator on stdout.
//
// Thread Safety: Safe for concurrent use.
type Spinner struct {
	message    string
	stop       chan struct{}
	done       chan struct{}
	mu         sync.Mutex
	isRunning  bool
	frameIndex int
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				// Clear the spinner line.
				fmt.Print("\r\033[K")
				close(s.done)
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := Styles.Highlight.Render(spinnerFrames[s.frameIndex])
				fmt.Printf("\r%s %s", frame, s.message)
				s.frameIndex = (s.frameIndex + 1) % len(spinnerFrames)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stop)
	<-s.done
}

// UpdateMessage changes the message while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// ProgressSpinner combines a spinner with a done/total counter.
type ProgressSpinner struct {
	*Spinner
	label   string
	current int
	total   int
}

// NewProgressSpinner creates a spinner that shows progress toward a
// known total.
func NewProgressSpinner(label string, total int) *ProgressSpinner {
	return &ProgressSpinner{
		Spinner: NewSpinner(fmt.Sprintf("%s [0/%d]", label, total)),
		label:   label,
		total:   total,
	}
}

// Increment advances the counter by one.
func (p *ProgressSpinner) Increment() {
	p.mu.Lock()
	p.current++
	p.message = fmt.Sprintf("%s [%d/%d]", p.label, p.current, p.total)
	p.mu.Unlock()
}
