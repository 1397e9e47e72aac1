package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// runREPL reads one command per line and passes its fields to exec. Errors
// are printed and the loop continues. It returns on EOF, "exit" or "quit".
func runREPL(ctx context.Context, exec func(ctx context.Context, args []string) error, scanner *bufio.Scanner) {
	for {
		printlnFn("zl> ")
		if !scanner.Scan() {
			return
		}
		args, err := splitArgs(scanner.Text())
		if err != nil {
			printlnFn("error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			printlnFn(usage)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "shell":
			printlnFn("already in shell")
		default:
			if err := exec(ctx, args); err != nil {
				printlnFn("error:", err)
			}
		}
	}
}

var errUnterminatedQuote = errors.New("unterminated quote")

// splitArgs splits a line on whitespace. Single or double quotes group a
// field, so JSON payloads can contain spaces.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inField bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inField = true
		case r == ' ' || r == '\t':
			if inField {
				args = append(args, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	if inField {
		args = append(args, cur.String())
	}
	return args, nil
}
