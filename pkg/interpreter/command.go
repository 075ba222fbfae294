package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"sibs/pkg/ast"
	"sibs/pkg/value"
)

// command runs a backtick command through the configured shell in the
// component's working directory. A failing process is not an error: its
// status is reported in the result.
func (i *Interpreter) command(ctx context.Context, n *ast.Command) (value.RtValue, error) {
	line, err := i.interpolate(ctx, n.Parts)
	if err != nil {
		return value.Void(), err
	}
	return i.Spawn(ctx, line)
}

// Spawn runs line the way a backtick command does.
func (i *Interpreter) Spawn(ctx context.Context, line string) (value.RtValue, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return value.Void(), errors.New("empty command")
	}

	rt := i.rt
	owner := rt.Owner()
	shell := rt.Shell()

	cmd := exec.CommandContext(ctx, shell[0], append(shell[1:], line)...)
	cmd.Dir = i.Workdir()
	cmd.Env = rt.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	rt.Journal().Progress(owner, line, "running")
	runErr := cmd.Run()

	res := value.ExecuteResult{
		Command: line,
		Stdout:  stdout.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		res.Status = value.StatusCancelled
		res.Code = -1
		rt.Journal().Warn(owner, "command cancelled", "command", line)
	case runErr == nil:
		res.Status = value.StatusSuccess
		rt.Journal().Progress(owner, line, "done")
	case errors.As(runErr, &exitErr):
		res.Status = value.StatusFailed
		res.Code = exitErr.ExitCode()
		rt.Journal().Warn(owner, "command failed", "command", line, "code", res.Code, "stderr", strings.TrimSpace(stderr.String()))
	default:
		return value.Void(), fmt.Errorf("run %q: %w", line, runErr)
	}

	return value.Execute(res), nil
}
