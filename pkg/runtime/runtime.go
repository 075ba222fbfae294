// Package runtime composes the managers a running script talks to into one
// handle. A Runtime owns its Scope and Loop managers; the signal broker,
// function registry and journal are shared by every context created from
// the same root.
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"sibs/pkg/runtime/fns"
	"sibs/pkg/runtime/journal"
	"sibs/pkg/runtime/loops"
	"sibs/pkg/runtime/scope"
	"sibs/pkg/runtime/signals"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// RtParameters selects the entry point of a script run.
type RtParameters struct {
	Component string
	Task      string
	Args      []string
	Cwd       string
}

type shared struct {
	signals *signals.Broker
	fns     *fns.Registry
	journal *journal.Journal
	out     io.Writer
	shell   []string
	env     map[string]string
}

type Runtime struct {
	params RtParameters
	scope  *scope.Scope
	loops  *loops.Loops
	shared *shared
	root   bool

	ctx       context.Context
	cancel    context.CancelFunc
	destroyed sync.Once
}

type Option func(*shared)

// WithWriter sets the output writer for print and command output
func WithWriter(w io.Writer) Option {
	return func(s *shared) { s.out = w }
}

// WithJournal replaces the default journal
func WithJournal(j *journal.Journal) Option {
	return func(s *shared) { s.journal = j }
}

// WithShell sets the command used to run backtick commands, e.g. ["sh", "-c"]
func WithShell(shell ...string) Option {
	return func(s *shared) {
		if len(shell) > 0 {
			s.shell = shell
		}
	}
}

// WithEnv adds environment variables for spawned commands
func WithEnv(env map[string]string) Option {
	return func(s *shared) {
		for k, v := range env {
			s.env[k] = v
		}
	}
}

// New creates a root runtime. Cancelling ctx cancels every context created
// from it.
func New(ctx context.Context, params RtParameters, opts ...Option) (*Runtime, error) {
	s := &shared{
		shell: []string{"sh", "-c"},
		env:   map[string]string{},
	}
	for _, o := range opts {
		o(s)
	}

	if s.out == nil {
		s.out = os.Stdout
	}
	s.out = &lockedWriter{w: s.out}
	if s.journal == nil {
		s.journal = journal.New(journal.NewLogger(os.Stderr, false))
	}
	s.signals = signals.New()
	s.fns = fns.New()

	if params.Cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("runtime: %w", err)
		}
		params.Cwd = cwd
	}

	rt, err := newContext(ctx, params, s)
	if err != nil {
		s.shutdown()
		return nil, err
	}
	rt.root = true

	log.Debug("runtime created", "component", params.Component, "task", params.Task, "cwd", params.Cwd)
	return rt, nil
}

func newContext(parent context.Context, params RtParameters, s *shared) (*Runtime, error) {
	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		params: params,
		scope:  scope.New(),
		loops:  loops.New(),
		shared: s,
		ctx:    ctx,
		cancel: cancel,
	}

	// base frame of the context
	if err := rt.scope.Enter(ctx, uuid.New()); err != nil {
		rt.Destroy()
		return nil, err
	}
	return rt, nil
}

// GetRtParameters returns a copy of the entry point parameters.
func (rt *Runtime) GetRtParameters() RtParameters {
	params := rt.params
	params.Args = append([]string(nil), rt.params.Args...)
	return params
}

// CreateContext creates a runtime for a spawned task with its own scope and
// loop managers. An empty Cwd inherits the parent's working directory.
func (rt *Runtime) CreateContext(params RtParameters) (*Runtime, error) {
	if params.Cwd == "" {
		params.Cwd = rt.params.Cwd
	}
	return newContext(rt.ctx, params, rt.shared)
}

// Fork creates a context seeded with every variable visible in rt.
func (rt *Runtime) Fork() (*Runtime, error) {
	vars, err := rt.scope.Snapshot(rt.ctx)
	if err != nil {
		return nil, err
	}

	child, err := rt.CreateContext(rt.GetRtParameters())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := vars[name]
		if err := child.scope.SetVariable(child.ctx, name, v.Value, v.Ty); err != nil {
			child.Destroy()
			return nil, err
		}
	}
	return child, nil
}

// Destroy cancels the context and stops the managers it owns; the root
// also stops the shared ones. Calling it more than once is a no-op.
func (rt *Runtime) Destroy() {
	rt.destroyed.Do(func() {
		rt.cancel()
		rt.scope.Shutdown()
		rt.loops.Shutdown()
		if rt.root {
			rt.shared.shutdown()
			log.Debug("runtime destroyed", "component", rt.params.Component, "task", rt.params.Task)
		}
	})
}

func (s *shared) shutdown() {
	_ = s.journal.Flush(context.Background())
	s.signals.Shutdown()
	s.fns.Shutdown()
	s.journal.Shutdown()
}

// Context is cancelled when the runtime is destroyed.
func (rt *Runtime) Context() context.Context { return rt.ctx }

func (rt *Runtime) Scope() *scope.Scope { return rt.scope }

func (rt *Runtime) Loops() *loops.Loops { return rt.loops }

func (rt *Runtime) Signals() *signals.Broker { return rt.shared.signals }

func (rt *Runtime) Fns() *fns.Registry { return rt.shared.fns }

func (rt *Runtime) Journal() *journal.Journal { return rt.shared.journal }

// Out is safe for concurrent use by joined contexts.
func (rt *Runtime) Out() io.Writer { return rt.shared.out }

// Shell returns the command prefix for backtick commands.
func (rt *Runtime) Shell() []string {
	return append([]string(nil), rt.shared.shell...)
}

// Environ returns the process environment with configured overrides.
func (rt *Runtime) Environ() []string {
	env := os.Environ()
	for k, v := range rt.shared.env {
		env = append(env, k+"="+v)
	}
	return env
}

// Owner names the context in journal records.
func (rt *Runtime) Owner() string {
	switch {
	case rt.params.Component != "" && rt.params.Task != "":
		return rt.params.Component + ":" + rt.params.Task
	case rt.params.Task != "":
		return rt.params.Task
	default:
		return "main"
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
