package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/clouddrive/drive/internal/dialog"
	"github.com/clouddrive/drive/internal/util/sanitize"
)

// terminalPrompter answers dialog requests from line input.
type terminalPrompter struct {
	src io.Reader
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	if br, ok := in.(*bufio.Reader); ok {
		return &terminalPrompter{src: in, in: br, out: out}
	}
	return &terminalPrompter{src: in, in: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed answer.
func (p *terminalPrompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)
	return p.readLine(ctx)
}

// readLine reads one line, honouring ctx only between reads.
func (p *terminalPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Prompt implements dialog.Prompter. An empty answer or EOF cancels.
func (p *terminalPrompter) Prompt(ctx context.Context, req dialog.Request) (dialog.Result, error) {
	switch req.Kind {
	case dialog.KindConfirmDelete:
		if req.RequireName {
			fmt.Fprintf(p.out, "%s Type the name to confirm: ", req.Title)
		} else {
			fmt.Fprintf(p.out, "%s [y/N]: ", req.Title)
		}
	case dialog.KindRename:
		fmt.Fprintf(p.out, "%s [%s]: ", req.Title, req.Default)
	default:
		fmt.Fprintf(p.out, "%s: ", req.Title)
	}

	answer, err := p.readLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dialog.Cancelled(), nil
		}
		return dialog.Cancelled(), err
	}

	switch req.Kind {
	case dialog.KindConfirmDelete:
		if req.RequireName {
			if answer == "" {
				return dialog.Cancelled(), nil
			}
			return dialog.Confirmed(answer), nil
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return dialog.Confirmed(req.Default), nil
		default:
			return dialog.Cancelled(), nil
		}
	default:
		answer = sanitize.Name(answer)
		if answer == "" {
			return dialog.Cancelled(), nil
		}
		return dialog.Confirmed(answer), nil
	}
}

// readPassword reads a secret without echo when input is a terminal.
func (p *terminalPrompter) readPassword(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if f, ok := p.src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
