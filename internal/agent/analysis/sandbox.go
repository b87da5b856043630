package analysis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "github.com/docuchat/server/pkg/logger"
)

const truncationMarker = "\n... [output truncated]"

// Sandbox runs model-generated code in a subprocess with a deadline and a
// byte-capped combined output buffer. Each run gets a fresh scratch
// directory, so no state leaks between unrelated analysis requests, and
// generated code never touches the host process's own state. Execution
// errors become part of the captured output; Run never fails.
type Sandbox struct {
	Interpreter string
	Timeout     time.Duration
	MaxOutput   int
}

func NewSandbox(interpreter string, timeout time.Duration, maxOutput int) *Sandbox {
	return &Sandbox{Interpreter: interpreter, Timeout: timeout, MaxOutput: maxOutput}
}

func (s *Sandbox) Run(ctx context.Context, code string) string {
	workdir, err := os.MkdirTemp("", "analysis-run-")
	if err != nil {
		return fmt.Sprintf("Error executing code: %v", err)
	}
	defer os.RemoveAll(workdir)

	script := filepath.Join(workdir, "main.py")
	if err := os.WriteFile(script, []byte(code), 0o600); err != nil {
		return fmt.Sprintf("Error executing code: %v", err)
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	buf := &cappedBuffer{max: s.MaxOutput}
	cmd := exec.CommandContext(runCtx, s.Interpreter, script)
	cmd.Dir = workdir
	cmd.Stdout = buf
	cmd.Stderr = buf

	runErr := cmd.Run()
	output := strings.TrimSpace(buf.String())

	if runErr != nil {
		logx.Debug().Err(runErr).Msg("sandboxed execution failed")
		if runCtx.Err() == context.DeadlineExceeded {
			runErr = fmt.Errorf("execution timed out after %s", s.Timeout)
		}
		if output != "" {
			output += "\n"
		}
		output += fmt.Sprintf("Error executing code: %v", runErr)
	}
	return output
}

// cappedBuffer keeps the first max bytes written and drops the rest,
// recording that truncation happened.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= 0 || len(b.buf) < b.max {
		room := len(p)
		if b.max > 0 && len(b.buf)+room > b.max {
			room = b.max - len(b.buf)
			b.truncated = true
		}
		b.buf = append(b.buf, p[:room]...)
	} else if len(p) > 0 {
		b.truncated = true
	}
	// Report full length so the child process never sees a short write.
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return string(b.buf) + truncationMarker
	}
	return string(b.buf)
}
