package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewRequestID returns a sortable id for correlating a request across log lines.
func NewRequestID() string {
	return ksuid.New().String()
}

// NewAccountID returns the identifier shared by an account and its profile row.
func NewAccountID() string {
	return uuid.NewString()
}

// IsAccountID reports whether s parses as an account identifier.
func IsAccountID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

func snowflakeNode() *snowflake.Node {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// out of range node ids fall back to node 1
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	return node
}

// NewSnowflakeID generates a snowflake id using the node from SNOWFLAKE_NODE.
// If no node could be initialized it falls back to a KSUID string.
func NewSnowflakeID() string {
	n := snowflakeNode()
	if n == nil {
		return ksuid.New().String()
	}
	return n.Generate().String()
}
