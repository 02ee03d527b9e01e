package engine

import (
	"context"
	"time"
)

// overlay channels of the osd-overlay command
const (
	messagesOverlay = 1
	commentsOverlay = 2
)

const osdTimeout = time.Second

// messagesStyle anchors messages top-left.
const messagesStyle = `{\an7\fs38\bord2\shad1}`

// Message shows text under category for d, forever when d is not positive.
func (e *Engine) Message(category, text string, d time.Duration) {
	e.messages.Add(category, text, d)
}

// RemoveMessage removes the messages of the given categories.
func (e *Engine) RemoveMessage(categories ...string) {
	e.messages.RemoveMany(categories...)
}

// Messages returns the composed message text.
func (e *Engine) Messages() string {
	return e.messages.Text()
}

// Comment floats a comment across the outputs.
func (e *Engine) Comment(text string) {
	e.comments.Add(text)
}

func (e *Engine) tickDisplay(text string) {
	if text != "" {
		text = messagesStyle + text
	}
	e.osd(messagesOverlay, text)
}

func (e *Engine) tickCommentDisplay(text string) {
	e.osd(commentsOverlay, text)
}

// osd pushes ASS events to an overlay channel. Failures are only logged.
func (e *Engine) osd(id int, data string) {
	ctx, cancel := context.WithTimeout(context.Background(), osdTimeout)
	defer cancel()

	command := map[string]any{
		"name":   "osd-overlay",
		"id":     id,
		"format": "ass-events",
		"data":   data,
		"res_x":  1920,
		"res_y":  1080,
	}
	if data == "" {
		command["format"] = "none"
	}

	_ = e.fanout(ctx, execOpts{quiet: true}, "osd-overlay", func(ctx context.Context, t Transport) error {
		_, err := t.Send(ctx, command)
		return err
	})
}
