package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Calls after the first are no-ops, as are calls after the first id was
// generated.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// current returns the configured node, falling back to node 0 when Init
// was never called.
func current() *snowflake.Node {
	once.Do(func() {
		node, _ = snowflake.NewNode(0)
	})
	return node
}

// NewString generates a time-ordered id rendered in base 10, the form
// reminder ids are stored in.
func NewString() string {
	return current().Generate().String()
}
