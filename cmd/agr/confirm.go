package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// confirmYesNo prints a y/N prompt and reads one line of input, defaulting
// to false when stdin isn't a terminal (scripted/CI runs should never
// block on a prompt they can't answer) or when the user just hits enter.
func confirmYesNo(in *os.File, out io.Writer, prompt string) bool {
	if !term.IsTerminal(int(in.Fd())) {
		return false
	}
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
