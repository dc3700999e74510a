package reportstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ginjaninja78/report-consolidator/internal/types"
)

// Category is one named slot of the consolidated store.
type Category struct {
	Name    string
	Reports []types.Report
}

// Consolidated maps category names to their reports. Categories iterate in
// the order they were first stored; replacing a category keeps its slot.
//
// It encodes as a JSON object {category: [report, ...]}.
type Consolidated struct {
	entries []Category
}

// Len returns the number of categories.
func (c *Consolidated) Len() int {
	return len(c.entries)
}

// Categories returns the category names in iteration order.
func (c *Consolidated) Categories() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns the categories in iteration order.
func (c *Consolidated) Entries() []Category {
	return append([]Category(nil), c.entries...)
}

// Get returns the reports stored for category.
func (c *Consolidated) Get(category string) ([]types.Report, bool) {
	if i := c.index(category); i >= 0 {
		return c.entries[i].Reports, true
	}
	return nil, false
}

// Set replaces the reports for category.
func (c *Consolidated) Set(category string, reports []types.Report) {
	if i := c.index(category); i >= 0 {
		c.entries[i].Reports = reports
		return
	}
	c.entries = append(c.entries, Category{Name: category, Reports: reports})
}

// Delete removes category. It reports whether the category existed.
func (c *Consolidated) Delete(category string) bool {
	i := c.index(category)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

func (c *Consolidated) index(category string) int {
	for i, e := range c.entries {
		if e.Name == category {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the categories as an ordered JSON object.
func (c Consolidated) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		reports := e.Reports
		if reports == nil {
			reports = []types.Report{}
		}
		body, err := json.Marshal(reports)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", e.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an ordered JSON object of categories.
func (c *Consolidated) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		c.entries = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("consolidated reports must be a JSON object")
	}

	var out Consolidated
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("category name must be a string")
		}

		var reports []types.Report
		if err := dec.Decode(&reports); err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		out.Set(name, reports)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	c.entries = out.entries
	return nil
}
