package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed random identifier such as "sale-3f1c...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
