// Package songrec runs the songrec CLI as the single-shot
// fingerprinting backend: one invocation, one payload or none.
package songrec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/recognize"
	"github.com/mattn/go-shellwords"
)

const defaultCommand = "songrec audio-file-to-recognized-song"

// Service invokes the songrec CLI once per recognition request. A
// non-zero exit or malformed output is fatal for that request; the
// service never retries.
type Service struct {
	cmd     []string
	timeout time.Duration
	logger  *logpkg.Logger
}

// New parses the configured command line. An empty command falls back
// to the stock songrec invocation. A zero timeout defaults to 30s.
func New(command string, timeout time.Duration, log *logpkg.Logger) (*Service, error) {
	if command == "" {
		command = defaultCommand
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse songrec command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("songrec command is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{cmd: args, timeout: timeout, logger: log}, nil
}

// Start verifies the binary is reachable.
func (s *Service) Start(ctx context.Context) error {
	if _, err := exec.LookPath(s.cmd[0]); err != nil {
		return fmt.Errorf("songrec binary not found: %w", err)
	}
	return nil
}

func (s *Service) Stop() error { return nil }

// Recognize fingerprints the audio file once. The returned payload
// carries a nil track when the backend reports no match.
func (s *Service) Recognize(ctx context.Context, audioPath string) (*recognize.Payload, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string{}, s.cmd[1:]...), audioPath)
	cmd := exec.CommandContext(runCtx, s.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("songrec failed: %w, stderr: %s", err, stderr.String())
	}

	var payload recognize.Payload
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &payload); err != nil {
		return nil, fmt.Errorf("parse songrec output: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("songrec finished", "matched", payload.Matched())
	}
	return &payload, nil
}
