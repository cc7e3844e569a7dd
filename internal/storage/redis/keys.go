package redis

import (
	"fmt"

	"github.com/mcoot/draftroom/internal/model"
)

// Key prefix for all draft data
const keyPrefix = "draftroom"

// draftKey returns the Redis key for the live hash of a draft (fields cursor, data)
func draftKey(id model.SessionID) string {
	return fmt.Sprintf("%s:draft:%s", keyPrefix, id)
}

// archiveKey returns the Redis key for the final copy of a finished draft
func archiveKey(id model.SessionID) string {
	return fmt.Sprintf("%s:archive:%s", keyPrefix, id)
}
