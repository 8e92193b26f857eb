// Package shazam drives a local recognition sidecar as the streaming
// fingerprinting backend: an ordered sequence of independent attempts
// against the same audio sample.
package shazam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/recognize"
	"github.com/mattn/go-shellwords"
)

// Service manages the sidecar process and issues one HTTP request per
// recognition pass.
type Service struct {
	serviceURL  string
	command     []string
	passTimeout time.Duration
	client      *http.Client
	logger      *logpkg.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
}

// Options configures the streaming service.
type Options struct {
	// Port of the sidecar HTTP service. Zero defaults to 3737.
	Port int
	// Command starts the sidecar process. Empty means the sidecar is
	// managed externally and only reached over HTTP.
	Command string
	// PassTimeout bounds a single recognition pass. A timed-out pass
	// yields no match instead of ending the stream. Zero defaults to
	// 15 seconds.
	PassTimeout time.Duration
	Logger      *logpkg.Logger
}

func New(opts Options) (*Service, error) {
	port := opts.Port
	if port == 0 {
		port = 3737
	}
	var command []string
	if opts.Command != "" {
		args, err := shellwords.Parse(opts.Command)
		if err != nil {
			return nil, fmt.Errorf("parse sidecar command: %w", err)
		}
		command = args
	}
	passTimeout := opts.PassTimeout
	if passTimeout <= 0 {
		passTimeout = 15 * time.Second
	}
	return &Service{
		serviceURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
		command:     command,
		passTimeout: passTimeout,
		client:      &http.Client{},
		logger:      opts.Logger,
	}, nil
}

// Start launches the sidecar when a command is configured and waits
// for it to report healthy.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if len(s.command) > 0 {
		cmd := exec.Command(s.command[0], s.command[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start recognition sidecar: %w", err)
		}
		s.cmd = cmd
	}

	if err := s.waitForReady(ctx, 10*time.Second); err != nil {
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
			s.cmd = nil
		}
		return err
	}

	s.started = true
	return nil
}

func (s *Service) waitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.New("timeout waiting for recognition sidecar")
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serviceURL+"/health", nil)
			if err != nil {
				continue
			}
			resp, err := s.client.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}
	}
}

// Stop terminates the sidecar process if this service started it.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		return s.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	select {
	case <-time.After(5 * time.Second):
		_ = s.cmd.Process.Kill()
		<-done
	case <-done:
	}

	s.cmd = nil
	return nil
}

// RecognizeStream opens a pass sequence over the audio sample. The
// sequence is bounded by maxPasses and ends silently if the sidecar
// fails mid-stream.
func (s *Service) RecognizeStream(audioData []byte, maxPasses int) recognize.Stream {
	if maxPasses <= 0 {
		maxPasses = recognize.DefaultMaxPasses
	}
	return &stream{svc: s, audio: audioData, maxPasses: maxPasses}
}

func (s *Service) recognizePass(ctx context.Context, audioData []byte, pass int) (*recognize.Payload, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil, errors.New("recognition sidecar not started")
	}

	url := fmt.Sprintf("%s/recognize?pass=%d", s.serviceURL, pass)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audioData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recognition sidecar: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition sidecar returned status %d", resp.StatusCode)
	}

	var payload recognize.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse sidecar response: %w", err)
	}
	return &payload, nil
}

// stream pulls one pass per Next call, so a pass is fully processed by
// the consumer before the next attempt is made.
type stream struct {
	svc       *Service
	audio     []byte
	maxPasses int
	index     int
	err       error
	done      bool
}

func (st *stream) Next(ctx context.Context) (recognize.Pass, bool) {
	if st.done || st.index >= st.maxPasses || ctx.Err() != nil {
		st.done = true
		return recognize.Pass{}, false
	}
	st.index++

	passCtx, cancel := context.WithTimeout(ctx, st.svc.passTimeout)
	payload, err := st.svc.recognizePass(passCtx, st.audio, st.index)
	cancel()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Workflow cancelled, not a pass-local condition.
			st.done = true
			return recognize.Pass{}, false
		case errors.Is(err, context.DeadlineExceeded):
			// A timed-out pass yields no match; later passes may
			// still succeed.
			if st.svc.logger != nil {
				st.svc.logger.Warn("recognition pass timed out", "pass", st.index)
			}
			return recognize.Pass{Index: st.index, Payload: &recognize.Payload{}}, true
		default:
			st.err = err
			st.done = true
			return recognize.Pass{}, false
		}
	}
	return recognize.Pass{Index: st.index, Payload: payload}, true
}

func (st *stream) Err() error { return st.err }
