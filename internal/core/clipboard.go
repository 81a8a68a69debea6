package core

import (
	"context"
	"sync"
)

// Clipboard receives the summary of a newly created record.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(ctx context.Context, text string) error

func (f ClipboardFunc) Copy(ctx context.Context, text string) error {
	return f(ctx, text)
}

// ClipboardBuffer keeps the last copied text so a transport can hand it
// to the client.
type ClipboardBuffer struct {
	mu   sync.Mutex
	text string
}

func (b *ClipboardBuffer) Copy(_ context.Context, text string) error {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
	return nil
}

// Text returns the last copied text.
func (b *ClipboardBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
