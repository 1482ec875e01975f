package cache

import (
	"cmp"
	"slices"
	"sync"
)

// Form is a form sent by the Java server to be shown to the client.
type Form struct {
	ID     uint32 // Bedrock form id
	JavaID uint16 // id the Java server expects in the response
	Type   byte   // Floodgate form type
	Data   string // json form definition
}

// Forms caches forms that were not answered yet.
type Forms struct {
	mu    sync.Mutex
	next  uint32
	forms map[uint32]Form
}

// NewForms returns an empty form cache.
func NewForms() *Forms {
	return &Forms{forms: map[uint32]Form{}}
}

// Add caches f under a new Bedrock form id and returns the form with that id.
func (c *Forms) Add(f Form) Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.ID = c.next
	c.next++
	c.forms[f.ID] = f
	return f
}

// Take removes and returns the form with id.
func (c *Forms) Take(id uint32) (Form, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forms[id]
	delete(c.forms, id)
	return f, ok
}

// Pending returns the cached forms ordered by id.
func (c *Forms) Pending() []Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	forms := make([]Form, 0, len(c.forms))
	for _, f := range c.forms {
		forms = append(forms, f)
	}
	slices.SortFunc(forms, func(a, b Form) int { return cmp.Compare(a.ID, b.ID) })
	return forms
}

// Clear removes all forms.
func (c *Forms) Clear() {
	c.mu.Lock()
	clear(c.forms)
	c.mu.Unlock()
}
