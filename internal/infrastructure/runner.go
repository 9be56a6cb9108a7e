package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

// stderrTailLimit caps how much stderr is attached to a ProcessError
const stderrTailLimit = 2048

// Runner executes external commands. Every downloader and transcoder
// invocation goes through this single chokepoint so that logging,
// timeouts, and error shape stay uniform.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (stdout, stderr string, err error)
}

// ExecRunner runs commands via os/exec with a hard deadline. The process
// is killed when the deadline elapses, never left running.
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a new exec-backed runner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

// Run executes a command, capturing stdout and stderr separately.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, string, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	r.logger.Debug("Running command",
		zap.String("binary", name),
		zap.Strings("args", args),
		zap.Duration("timeout", timeout))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	stdout := outBuf.String()
	stderr := errBuf.String()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("Command timed out",
				zap.String("binary", name),
				zap.Duration("after", elapsed))
			return stdout, stderr, fmt.Errorf("%s after %s: %w", name, timeout, domain.ErrProcessTimeout)
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		procErr := &domain.ProcessError{
			Command:  name,
			ExitCode: exitCode,
			Stderr:   tail(stderr, stderrTailLimit),
		}
		r.logger.Error("Command failed",
			zap.String("binary", name),
			zap.Int("exit_code", exitCode),
			zap.String("stderr", procErr.Stderr))
		return stdout, stderr, procErr
	}

	r.logger.Debug("Command completed",
		zap.String("binary", name),
		zap.Duration("elapsed", elapsed))

	return stdout, stderr, nil
}

// tail returns the last n bytes of s, trimmed of surrounding whitespace.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
