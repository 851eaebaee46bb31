// Package repl implements an interactive console for the iris build
// language, with line editing, history, and tab completion.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/irisbuild/iris/pkg/irislang/evaluator"
	"github.com/irisbuild/iris/pkg/irislang/lexer"
	"github.com/irisbuild/iris/pkg/irislang/parser"
)

const PROMPT = "iris> "
const CONTINUATION_PROMPT = "  ... "

// Keywords and builtins offered for tab completion
var completionWords = []string{
	// Keywords
	"project", "executable", "library", "shared_library", "static_library",
	"compiler", "dependency", "task", "if", "else", "unless", "for", "in",
	"do", "end", "fn", "return", "and", "or", "not",
	// Builtins
	"glob", "find_package", "find_library", "print", "error", "warning",
	"shell", "run", "env", "platform", "arch", "join", "split", "contains",
	"len", "file_exists", "read_file", "write_file", "dirname", "basename",
	"extension",
	// Common values
	"true", "false", "nil",
}

// Start runs the REPL until EOF or 'exit'
func Start(out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return filterCompletions(input)
	})

	historyFile := filepath.Join(os.TempDir(), ".iris_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	interp := evaluator.NewWithLogger(evaluator.WriterLogger(out))
	interp.EnsureConfig()

	fmt.Fprintf(out, "iris %s\n", version)
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		prompt := PROMPT
		if inputBuffer.Len() > 0 {
			prompt = CONTINUATION_PROMPT
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				inputBuffer.Reset()
				continue
			}
			fmt.Fprintln(out, "")
			return
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			return
		}
		if trimmed == "" && inputBuffer.Len() == 0 {
			continue
		}

		inputBuffer.WriteString(input)
		inputBuffer.WriteString("\n")

		// Unbalanced do/end means a block is still open; keep reading
		source := inputBuffer.String()
		if openBlocks(source) > 0 {
			continue
		}

		line.AppendHistory(strings.TrimSuffix(source, "\n"))
		inputBuffer.Reset()

		program, err := parser.Parse(source)
		if err != nil {
			fmt.Fprintln(out, err.Error())
			continue
		}

		result, err := interp.EvalProgram(program)
		if err != nil {
			fmt.Fprintln(out, err.Error())
			continue
		}
		if _, isNil := result.(*evaluator.Nil); !isNil {
			fmt.Fprintln(out, result.Inspect())
		}
	}
}

// openBlocks counts do/end nesting to decide whether input continues
func openBlocks(source string) int {
	l := lexer.New(source)
	depth := 0
	for {
		tok := l.NextToken()
		switch tok.Type {
		case lexer.DO:
			depth++
		case lexer.END:
			depth--
		case lexer.EOF:
			return depth
		}
	}
}

func filterCompletions(input string) []string {
	// Complete only the final word so expressions keep their prefix
	lastSpace := strings.LastIndexAny(input, " \t([{,")
	prefix, word := "", input
	if lastSpace >= 0 {
		prefix, word = input[:lastSpace+1], input[lastSpace+1:]
	}
	if word == "" {
		return nil
	}

	var out []string
	for _, candidate := range completionWords {
		if strings.HasPrefix(candidate, word) {
			out = append(out, prefix+candidate)
		}
	}
	return out
}
