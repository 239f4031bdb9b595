package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID. Session and revision IDs
// are minted here so they stay unique across server replicas.
func New() int64 {
	return node.Generate().Int64()
}

// Parse decodes an ID received as a decimal string, e.g. from a URL path.
func Parse(s string) (int64, error) {
	sid, err := snowflake.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing id %q: %w", s, err)
	}
	return sid.Int64(), nil
}
