package aggregates

import "trackd-backend/domain/core/guard"

// Both roots expose the Root capability instead of sharing a base type.
var (
	_ guard.Root = (*Issue)(nil)
	_ guard.Root = (*Milestone)(nil)
)

// The shape check runs once at package load: no aggregate may hold a direct
// reference to another aggregate root, only identifier fields. A violation is
// a definition error, so it panics rather than returning.
func init() {
	guard.MustVerifyShape(&Issue{}, &Milestone{})
}
