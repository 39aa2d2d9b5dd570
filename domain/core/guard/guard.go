// Package guard enforces the aggregate-shape rules: sub-collection size caps
// and the prohibition on direct object references between aggregate roots.
package guard

import (
	"fmt"
	"reflect"

	pkgerrors "trackd-backend/pkg/errors"
)

// Root is the capability an aggregate root exposes instead of inheriting from
// a base class: a stable type name and a version for optimistic concurrency.
type Root interface {
	AggregateType() string
	AggregateVersion() int
}

// CheckCapacity fails when a sub-collection mutation would exceed its cap.
// It is called synchronously from every collection-mutating method on a root,
// before the element is added; the collection is never silently truncated.
func CheckCapacity(collection string, size, cap int) error {
	if cap > 0 && size >= cap {
		return pkgerrors.NewCapacityExceeded(
			fmt.Sprintf("%s is at its maximum of %d elements", collection, cap))
	}
	return nil
}

// VerifyShape checks, at definition time, that no aggregate root stores
// another root (or a pointer, slice, map or struct containing one) in its
// field set. Relations between aggregates must be identifier fields only.
func VerifyShape(roots ...Root) error {
	rootTypes := make(map[reflect.Type]string, len(roots))
	for _, r := range roots {
		rootTypes[structType(reflect.TypeOf(r))] = r.AggregateType()
	}

	for _, r := range roots {
		self := structType(reflect.TypeOf(r))
		seen := make(map[reflect.Type]bool)
		if err := walkFields(self, self, rootTypes, seen); err != nil {
			return err
		}
	}
	return nil
}

// MustVerifyShape panics on a shape violation. Run from package init so a
// malformed aggregate definition cannot ship.
func MustVerifyShape(roots ...Root) {
	if err := VerifyShape(roots...); err != nil {
		panic(err)
	}
}

func structType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func walkFields(owner, t reflect.Type, rootTypes map[reflect.Type]string, seen map[reflect.Type]bool) error {
	t = structType(t)

	switch t.Kind() {
	case reflect.Struct:
		if name, isRoot := rootTypes[t]; isRoot && t != owner {
			return pkgerrors.NewValidation(fmt.Sprintf(
				"aggregate %q holds a direct reference to aggregate root %q; use its identifier instead",
				rootTypes[owner], name))
		}
		if seen[t] {
			return nil
		}
		seen[t] = true
		for i := 0; i < t.NumField(); i++ {
			if err := walkFields(owner, t.Field(i).Type, rootTypes, seen); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		if err := walkFields(owner, t.Elem(), rootTypes, seen); err != nil {
			return err
		}
		if t.Kind() == reflect.Map {
			return walkFields(owner, t.Key(), rootTypes, seen)
		}
	}
	return nil
}
