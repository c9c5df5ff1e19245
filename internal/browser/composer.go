package browser

import (
	"context"
	"fmt"
	"strings"
)

// Type inserts text at the composer's caret.
func (b *Browser) Type(ctx context.Context, text string) error {
	p := b.within(ctx, findTimeout)
	el, err := p.Element(b.sel.Composer)
	if err != nil {
		return fmt.Errorf("browser: composer: %w", err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("browser: focus composer: %w", err)
	}
	if err := p.InsertText(text); err != nil {
		return fmt.Errorf("browser: type: %w", err)
	}
	return nil
}

// SendEnabled reports whether the send button exists and is clickable.
func (b *Browser) SendEnabled(ctx context.Context) (bool, error) {
	has, el, err := b.within(ctx, probeTimeout).Has(b.sel.SendButton)
	if err != nil || !has {
		return false, err
	}
	disabled, err := el.Disabled()
	if err != nil {
		return false, fmt.Errorf("browser: send button: %w", err)
	}
	return !disabled, nil
}

// ClickSend presses the send button.
func (b *Browser) ClickSend(ctx context.Context) error {
	el, err := b.within(ctx, findTimeout).Element(b.sel.SendButton)
	if err != nil {
		return fmt.Errorf("browser: send button: %w", err)
	}
	if err := el.Hover(); err != nil {
		return fmt.Errorf("browser: hover send: %w", err)
	}
	return el.Click("left", 1)
}

// InputText returns what is left in the composer.
func (b *Browser) InputText(ctx context.Context) (string, error) {
	el, err := b.within(ctx, findTimeout).Element(b.sel.Composer)
	if err != nil {
		return "", fmt.Errorf("browser: composer: %w", err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("browser: read composer: %w", err)
	}
	return strings.TrimSpace(text), nil
}
