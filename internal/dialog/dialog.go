// Package dialog defines the request/response protocol the browser uses to
// ask the user for a name or a confirmation.
package dialog

import "context"

// Kind identifies what the dialog is asking for.
type Kind int

const (
	KindCreateFolder Kind = iota
	KindRename
	KindConfirmDelete
)

func (k Kind) String() string {
	switch k {
	case KindCreateFolder:
		return "create-folder"
	case KindRename:
		return "rename"
	case KindConfirmDelete:
		return "confirm-delete"
	default:
		return "unknown"
	}
}

// Request describes one modal prompt.
type Request struct {
	Kind    Kind
	Title   string // "Folder name", "Rename", `Delete "report.pdf"?`
	Default string // prefilled value (current name for rename)
	// RequireName asks the user to type Default back to confirm (strict delete).
	RequireName bool
}

// Result is Confirmed(value) or Cancelled.
type Result struct {
	confirmed bool
	value     string
}

// Confirmed returns a confirmed result carrying value.
func Confirmed(value string) Result {
	return Result{confirmed: true, value: value}
}

// Cancelled returns a cancelled result.
func Cancelled() Result {
	return Result{}
}

// IsConfirmed reports whether the user confirmed.
func (r Result) IsConfirmed() bool { return r.confirmed }

// Value returns the confirmed text ("" when cancelled).
func (r Result) Value() string { return r.value }

// Prompter shows a dialog and waits for the user's answer.
// A cancelled ctx must make Prompt return promptly.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Result, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, req Request) (Result, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
