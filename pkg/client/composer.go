package client

import (
	"strings"
	"sync"
)

type ComposerState int

const (
	ComposerClosed ComposerState = iota
	ComposerOpen
	ComposerSubmitting
)

func (s ComposerState) String() string {
	switch s {
	case ComposerOpen:
		return "open"
	case ComposerSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// Composer is the new-post box. A draft survives Exit and failed submissions; only a
// successful submission clears it.
type Composer struct {
	mu    sync.Mutex
	state ComposerState
	text  string
}

func (c *Composer) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ComposerClosed {
		c.state = ComposerOpen
	}
}

func (c *Composer) Input(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ComposerOpen {
		return false
	}
	c.text = text
	return true
}

func (c *Composer) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ComposerOpen {
		c.state = ComposerClosed
	}
}

// Submit hands out the draft and locks the composer until Resolve. Blank drafts stay Open.
func (c *Composer) Submit() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ComposerOpen || strings.TrimSpace(c.text) == "" {
		return "", false
	}
	c.state = ComposerSubmitting
	return c.text, true
}

func (c *Composer) Resolve(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ComposerSubmitting {
		return
	}
	c.state = ComposerClosed
	if ok {
		c.text = ""
	}
}

func (c *Composer) State() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
