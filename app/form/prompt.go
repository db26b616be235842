package form

import "context"

// Prompt is a yes/no question put to the user before a destructive action.
type Prompt struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	Confirm string `json:"confirmText"`
	Cancel  string `json:"cancelText"`
}

// Prompter is the interaction capability the screen provides: a blocking
// acknowledgement and a confirmation.
type Prompter interface {
	Alert(ctx context.Context, message string)
	Confirm(ctx context.Context, p Prompt) bool
}

// NopPrompter drops alerts and never confirms.
type NopPrompter struct{}

func (NopPrompter) Alert(context.Context, string) {}
func (NopPrompter) Confirm(context.Context, Prompt) bool { return false }
