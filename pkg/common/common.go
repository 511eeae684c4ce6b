package common

import (
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cast"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var snowflakeNode *snowflake.Node

func init() {
	nodeID := cast.ToInt64(os.Getenv("ZESTCART_NODE_ID"))
	if nodeID <= 0 || nodeID > 1023 {
		nodeID = 1
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	snowflakeNode = node
}

// UUIDint64 returns a new snowflake id.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a new snowflake id in string form.
func UUID() string {
	return snowflakeNode.Generate().String()
}

// IfEmptyStr returns defval when src is empty.
func IfEmptyStr(src string, defval string) string {
	if src == "" {
		return defval
	}
	return src
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || os.IsExist(err)
}

// MustMakeDir creates dir with parents, ignoring an existing dir.
func MustMakeDir(path string) {
	if !FileExists(path) {
		if err := os.MkdirAll(path, 0755); err != nil {
			panic(err)
		}
	}
}

// InSlice reports whether v is present in vals.
func InSlice(v string, vals []string) bool {
	for _, item := range vals {
		if item == v {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
