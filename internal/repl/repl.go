// Package repl runs sibs statements typed at an interactive prompt.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sibs/pkg/color"
	"sibs/pkg/diag"
	"sibs/pkg/interpreter"
	"sibs/pkg/lexer"
	"sibs/pkg/parser"

	"github.com/charmbracelet/log"
	"github.com/chzyer/readline"
)

const prompt = "sibs> "

// LineReader is satisfied by *readline.Instance
type LineReader interface {
	Readline() (string, error)
}

// Start opens a readline prompt and evaluates lines until end of input.
// Declarations persist between lines.
func Start(ctx context.Context, it *interpreter.Interpreter, out io.Writer) error {
	rt := it.Runtime()
	names, err := rt.Fns().Names(ctx)
	if err != nil {
		return err
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		if name != "" {
			items = append(items, readline.PcItem(name))
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close()

	return Loop(ctx, it, rl, out)
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sibs_history")
}

// Loop reads lines from in and evaluates each one. It returns nil at end
// of input and ctx.Err() when ctx is cancelled.
func Loop(ctx context.Context, it *interpreter.Interpreter, in LineReader, out io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("repl: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		Eval(ctx, it, line, out)
	}
}

// Eval parses and evaluates a single line, writing the result or the
// error to out
func Eval(ctx context.Context, it *interpreter.Interpreter, line string, out io.Writer) {
	p := parser.NewParser(lexer.NewLexer(line))
	block := p.ParseStatements()
	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintln(out, errs[0])
		return
	}

	v, err := it.Eval(ctx, block)
	if err != nil {
		log.Debug("evaluation failed", "line", line, "error", err)
		fmt.Fprintln(out, diag.Render(err, line))
		return
	}
	if !v.IsVoid() {
		fmt.Fprintln(out, color.CyanText(v.String()))
	}
}
