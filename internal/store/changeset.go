package store

import (
	"sync"

	"github.com/google/uuid"

	"ssmartr/internal/core"
)

// OpKind is the kind of a staged mutation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one staged mutation. Exactly one of the entity fields is set.
type Op struct {
	Kind        OpKind
	Category    *core.Category
	Transaction *core.Transaction
	Account     *core.BankAccount
}

// EntityID returns the identifier of the entity the op touches.
func (o Op) EntityID() uuid.UUID {
	switch {
	case o.Category != nil:
		return o.Category.ID
	case o.Transaction != nil:
		return o.Transaction.ID
	case o.Account != nil:
		return o.Account.ID
	}
	return uuid.Nil
}

// Changeset is the pending unit of work. Backends embed it to get the Stager
// half of Store and drain it with Take inside Save.
type Changeset struct {
	mu  sync.Mutex
	ops []Op
}

func (c *Changeset) stage(op Op) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

func (c *Changeset) InsertCategory(cat core.Category) {
	c.stage(Op{Kind: OpInsert, Category: &cat})
}

func (c *Changeset) InsertTransaction(t core.Transaction) {
	c.stage(Op{Kind: OpInsert, Transaction: &t})
}

func (c *Changeset) InsertAccount(a core.BankAccount) {
	c.stage(Op{Kind: OpInsert, Account: &a})
}

func (c *Changeset) UpdateCategory(cat core.Category) {
	c.stage(Op{Kind: OpUpdate, Category: &cat})
}

func (c *Changeset) UpdateTransaction(t core.Transaction) {
	c.stage(Op{Kind: OpUpdate, Transaction: &t})
}

func (c *Changeset) DeleteCategory(cat core.Category) {
	c.stage(Op{Kind: OpDelete, Category: &cat})
}

func (c *Changeset) DeleteTransaction(t core.Transaction) {
	c.stage(Op{Kind: OpDelete, Transaction: &t})
}

// Take returns the staged ops in order and empties the changeset.
func (c *Changeset) Take() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.ops
	c.ops = nil
	return ops
}

// Pending reports how many ops are staged.
func (c *Changeset) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Discard drops everything staged.
func (c *Changeset) Discard() {
	c.Take()
}
