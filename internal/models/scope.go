package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ScopeKind selects which category dimension a scope filters on.
type ScopeKind int

const (
	// ScopeGlobal matches every entity of the user.
	ScopeGlobal ScopeKind = iota
	// ScopeCategory matches entities with a given system category.
	ScopeCategory
	// ScopeUserCategory matches entities with a given user-defined category.
	ScopeUserCategory
)

// Scope is the category dimension a budget or recommendation applies to.
// The zero value is the global scope.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// GlobalScope returns the scope matching everything.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// CategoryScope returns a scope restricted to a system category.
func CategoryScope(id uuid.UUID) Scope { return Scope{Kind: ScopeCategory, ID: id} }

// UserCategoryScope returns a scope restricted to a user-defined category.
func UserCategoryScope(id uuid.UUID) Scope { return Scope{Kind: ScopeUserCategory, ID: id} }

// ScopeOf builds a scope from the nullable foreign keys stored on a row.
// A system category takes precedence when both are set.
func ScopeOf(categoryID, userCategoryID *uuid.UUID) Scope {
	switch {
	case categoryID != nil:
		return CategoryScope(*categoryID)
	case userCategoryID != nil:
		return UserCategoryScope(*userCategoryID)
	default:
		return GlobalScope()
	}
}

// Matches reports whether an entity with the given category keys falls in
// the scope.
func (s Scope) Matches(categoryID, userCategoryID *uuid.UUID) bool {
	switch s.Kind {
	case ScopeCategory:
		return categoryID != nil && *categoryID == s.ID
	case ScopeUserCategory:
		return userCategoryID != nil && *userCategoryID == s.ID
	default:
		return true
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeCategory:
		return fmt.Sprintf("category:%s", s.ID)
	case ScopeUserCategory:
		return fmt.Sprintf("user_category:%s", s.ID)
	default:
		return "global"
	}
}
