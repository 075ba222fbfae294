// Package driver wires a script file to a runtime: read, parse, boot the
// managers, run the entry point and report errors.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"sibs/internal/config"
	"sibs/internal/repl"
	"sibs/pkg/ast"
	"sibs/pkg/color"
	"sibs/pkg/diag"
	"sibs/pkg/embedded"
	"sibs/pkg/interpreter"
	"sibs/pkg/lexer"
	"sibs/pkg/parser"
	"sibs/pkg/runtime"
	"sibs/pkg/runtime/journal"

	"github.com/charmbracelet/log"
)

// ErrScriptFailed is returned once the script's own error has been reported
var ErrScriptFailed = errors.New("script failed")

type Driver struct {
	Help        bool   // Show help message
	Verbose     bool   // Enable verbose output
	NoColor     bool   // Disable colored output
	Interactive bool   // Start the interactive prompt
	ConfigFile  string // Path to sibs.yaml
	SourceFile  string // Path to the script

	Params   runtime.RtParameters
	Shell    []string
	Env      map[string]string
	MaxSteps int64

	Out io.Writer // script output, defaults to stdout
	Err io.Writer // diagnostics, defaults to stderr
}

// FromConfig fills the fields the command line left unset
func (d *Driver) FromConfig(cfg *config.Config) {
	d.Verbose = d.Verbose || cfg.Verbose
	d.NoColor = d.NoColor || cfg.NoColor
	if d.Params.Component == "" {
		d.Params.Component = cfg.Component
	}
	if d.Params.Task == "" {
		d.Params.Task = cfg.Task
	}
	if d.Params.Cwd == "" {
		d.Params.Cwd = cfg.Workdir
	}
	if len(d.Shell) == 0 {
		d.Shell = cfg.Shell
	}
	if d.Env == nil {
		d.Env = map[string]string{}
	}
	for k, v := range cfg.Env {
		if _, ok := d.Env[k]; !ok {
			d.Env[k] = v
		}
	}
}

func (d *Driver) stdout() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Driver) stderr() io.Writer {
	if d.Err == nil {
		return os.Stderr
	}
	return d.Err
}

// Parse reads and parses the source file, printing the first syntax error
func (d *Driver) Parse() (*ast.Script, string, error) {
	log.Debug("Processing file", "file", d.SourceFile)

	input, err := os.ReadFile(d.SourceFile)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", d.SourceFile, err)
	}
	src := string(input)

	p := parser.NewParser(lexer.NewLexer(src))
	script := p.Parse()

	syntaxErrors := p.Errors()
	if len(syntaxErrors) > 0 {
		fmt.Fprintln(d.stderr(), color.BrightRedText("=== Syntax Errors ==="))
		fmt.Fprintln(d.stderr(), syntaxErrors[0])
		return nil, src, fmt.Errorf("parsing failed with %d errors", len(syntaxErrors))
	}
	return script, src, nil
}

// Boot creates the root runtime, registers the embedded and script
// functions and returns an interpreter bound to it. The caller destroys
// the runtime.
func (d *Driver) Boot(ctx context.Context, script *ast.Script) (*interpreter.Interpreter, error) {
	rt, err := runtime.New(ctx, d.Params,
		runtime.WithWriter(d.stdout()),
		runtime.WithJournal(journal.New(journal.NewLogger(d.stderr(), d.Verbose))),
		runtime.WithShell(d.Shell...),
		runtime.WithEnv(d.Env),
	)
	if err != nil {
		return nil, err
	}

	if err := embedded.Register(rt.Context(), rt.Fns()); err != nil {
		rt.Destroy()
		return nil, err
	}

	var opts []interpreter.Option
	if d.MaxSteps > 0 {
		opts = append(opts, interpreter.WithMaxSteps(d.MaxSteps))
	}
	it := interpreter.NewInterpreter(rt, script, opts...)
	if err := it.Load(rt.Context()); err != nil {
		rt.Destroy()
		return nil, err
	}
	return it, nil
}

// Run executes the source file's entry point
func (d *Driver) Run(ctx context.Context) error {
	script, src, err := d.Parse()
	if err != nil {
		return err
	}

	it, err := d.Boot(ctx, script)
	if err != nil {
		fmt.Fprintln(d.stderr(), diag.Render(err, src))
		return ErrScriptFailed
	}
	rt := it.Runtime()
	defer rt.Destroy()

	v, err := it.Run(rt.Context())
	if err != nil {
		fmt.Fprintln(d.stderr(), diag.Render(err, src))
		return ErrScriptFailed
	}

	log.Debug("script finished", "result", v.String(), "steps", it.Steps())
	return nil
}

// Repl starts the interactive prompt. Functions of the source file, when
// one is given, are available at the prompt.
func (d *Driver) Repl(ctx context.Context) error {
	script := &ast.Script{}
	if d.SourceFile != "" {
		parsed, _, err := d.Parse()
		if err != nil {
			return err
		}
		// the entry block is not run at the prompt
		parsed.Main = nil
		script = parsed
	}

	it, err := d.Boot(ctx, script)
	if err != nil {
		return err
	}
	defer it.Runtime().Destroy()

	return repl.Start(it.Runtime().Context(), it, d.stdout())
}
