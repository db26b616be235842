package screen

import (
	"context"
	"sync"

	"github.com/conteo/inventory-admin/app/form"
)

type promptsKey struct{}

// prompts collects what the screen asked the user during one request.
// Confirmation answers come from the request itself.
type prompts struct {
	mu        sync.Mutex
	confirmed bool
	alerts    []string
	asked     *form.Prompt
}

func withPrompts(ctx context.Context, p *prompts) context.Context {
	return context.WithValue(ctx, promptsKey{}, p)
}

func promptsFrom(ctx context.Context) *prompts {
	p, _ := ctx.Value(promptsKey{}).(*prompts)
	return p
}

func (p *prompts) Alerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.alerts...)
}

// RequestPrompter answers prompts from the current request. Alerts are
// echoed back in the response; a confirmation holds only when the request
// carries confirm=true. Without request state it behaves like
// form.NopPrompter.
type RequestPrompter struct{}

func (RequestPrompter) Alert(ctx context.Context, message string) {
	p := promptsFrom(ctx)
	if p == nil {
		return
	}
	p.mu.Lock()
	p.alerts = append(p.alerts, message)
	p.mu.Unlock()
}

func (RequestPrompter) Confirm(ctx context.Context, prompt form.Prompt) bool {
	p := promptsFrom(ctx)
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = &prompt
	return p.confirmed
}
