package term

import (
	"strings"
	"sync"
)

// DefID identifies a definition of a book.
type DefID uint32

// Rule is one equation of a definition. Patterns are carried for later
// stages and ignored by the transforms in this module.
type Rule struct {
	DefID DefID
	Pats  []Term
	Body  Term
}

// Definition is a named, possibly multi-rule, top-level function.
type Definition struct {
	DefID DefID
	Rules []Rule
}

// DefNames maps definition ids to names and back.
//
// Writers (Insert) must not run concurrently with the rule transforms;
// after registration the table is only read and may be shared freely.
type DefNames struct {
	mu     sync.RWMutex
	names  []Name
	byName map[Name]DefID
}

func NewDefNames() *DefNames {
	return &DefNames{byName: make(map[Name]DefID)}
}

// Insert allocates a fresh id for name. Inserting a name twice yields two
// ids; lookups by name resolve to the newest one.
func (d *DefNames) Insert(name Name) DefID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := DefID(len(d.names))
	d.names = append(d.names, name)
	d.byName[name] = id
	return id
}

// ID resolves a name to its definition id.
func (d *DefNames) ID(name Name) (DefID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[name]
	return id, ok
}

// Name resolves a definition id to its name.
func (d *DefNames) Name(id DefID) (Name, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(id) >= len(d.names) {
		return "", false
	}
	return d.names[id], true
}

// Len returns the number of allocated ids.
func (d *DefNames) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// Book is the program: its definitions and their name table.
type Book struct {
	Defs  []*Definition
	Names *DefNames
}

func NewBook() *Book {
	return &Book{Names: NewDefNames()}
}

// Register allocates a name for a single-rule definition with the given
// body. The definition is returned, not appended to b.Defs.
func (b *Book) Register(name Name, body Term) *Definition {
	id := b.Names.Insert(name)
	return &Definition{DefID: id, Rules: []Rule{{DefID: id, Body: body}}}
}

// Definition looks a definition up by id.
func (b *Book) Definition(id DefID) (*Definition, bool) {
	for _, def := range b.Defs {
		if def.DefID == id {
			return def, true
		}
	}
	return nil, false
}

// Lookup looks a definition up by name.
func (b *Book) Lookup(name Name) (*Definition, bool) {
	id, ok := b.Names.ID(name)
	if !ok {
		return nil, false
	}
	return b.Definition(id)
}

// String renders the book as a sequence of def lines, one per rule.
func (b *Book) String() string {
	var sb strings.Builder
	for _, def := range b.Defs {
		name, _ := b.Names.Name(def.DefID)
		for _, rule := range def.Rules {
			sb.WriteString("def ")
			sb.WriteString(string(name))
			sb.WriteString(" = ")
			sb.WriteString(Format(rule.Body, b.Names))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
