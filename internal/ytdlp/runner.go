// Package ytdlp runs the external yt-dlp downloader and parses its output.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/logger"
)

var ErrLaunch = errors.New("failed to launch yt-dlp")

// pipeWaitDelay bounds how long Wait keeps the output pipes open after the
// context is cancelled, in case a post-processor child still holds them.
const pipeWaitDelay = 5 * time.Second

// Result is the outcome of one finished invocation.
type Result struct {
	ProducedPath string
	Stderr       string
	Summary      Summary
	ExitCode     int
	Success      bool
	WasDuplicate bool
}

// CommandFunc builds the command to run. It exists so tests can substitute
// the executable.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner launches yt-dlp, one process per call.
type Runner struct {
	Command    CommandFunc
	Logger     *logger.Logger
	Executable string
}

func NewRunner(executable string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Default()
	}
	return &Runner{
		Executable: executable,
		Logger:     log.WithComponent("ytdlp"),
		Command:    defaultCommand,
	}
}

func defaultCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = pipeWaitDelay
	return cmd
}

// Run executes req and streams each parsed event to onEvent while the
// process is still running. onEvent is called on the caller's goroutine.
//
// A non-nil error means the process could not be started; it wraps
// ErrLaunch. Otherwise the Result describes how the process ended.
func (r *Runner) Run(ctx context.Context, req Request, onEvent func(Event)) (*Result, error) {
	command := r.Command
	if command == nil {
		command = defaultCommand
	}

	args := BuildArgs(req)
	cmd := command(ctx, r.Executable, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.Logger.Debug("Launching yt-dlp", "executable", r.Executable, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	parser := NewParser(req.Destination)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxOutputLineBytes)
	for scanner.Scan() {
		for _, ev := range parser.Feed(scanner.Text()) {
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		r.Logger.Warn("Stopped parsing yt-dlp output", "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	summary := parser.Summary()

	res := &Result{
		ProducedPath: summary.LastPath,
		Stderr:       strings.TrimSpace(stderr.String()),
		Summary:      summary,
		WasDuplicate: summary.Duplicate(),
		ExitCode:     -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	res.Success = waitErr == nil || res.WasDuplicate
	if waitErr != nil && res.Stderr == "" {
		res.Stderr = waitErr.Error()
	}

	r.Logger.Debug("yt-dlp exited",
		"exit_code", res.ExitCode,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"duplicate", res.WasDuplicate,
	)
	return res, nil
}
