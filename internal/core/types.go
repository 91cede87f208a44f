package core

import (
	"fmt"
	"time"
)

// CompanionKey addresses one conversation thread: a (companion, user)
// pair tagged with the generation model in use. It is the partition key
// for the history log and every cache derived from it.
type CompanionKey struct {
	CompanionID string
	UserID      string
	ModelName   string
}

func (k CompanionKey) String() string {
	return k.CompanionID + "/" + k.UserID + "/" + k.ModelName
}

// Validate reports whether the key addresses a real thread.
func (k CompanionKey) Validate() error {
	if k.CompanionID == "" || k.UserID == "" || k.ModelName == "" {
		return fmt.Errorf("incomplete companion key %q", k.String())
	}
	return nil
}

// Role identifies who produced a turn.
type Role string

const (
	// RoleUser denotes a turn sent by the human user.
	RoleUser Role = "user"

	// RoleAssistant denotes a turn generated by the model.
	// The companion's replies always carry this role; the service never
	// records model output as "system".
	RoleAssistant Role = "assistant"

	// RoleSeed denotes a canned opening turn inserted when a
	// conversation log is first touched.
	RoleSeed Role = "seed"
)

// Turn is one persisted conversation event. It is the single source of
// truth for conversation state: both the structured message API and the
// free-text prompt history are projections of the same turn log.
type Turn struct {
	ID        string
	Role      Role
	Speaker   string
	Content   string
	Seq       int64
	CreatedAt time.Time
}

// Line projects the turn into the free-text form the context assembler
// consumes. Seed turns were written pre-formatted and pass through as-is.
func (t Turn) Line() string {
	if t.Role == RoleSeed || t.Speaker == "" {
		return t.Content
	}
	return t.Speaker + ": " + t.Content
}
