package repository

import (
	"fmt"

	"gitlab.com/yelinaung/subnest/internal/models"
)

// scopeClause returns the SQL predicate restricting rows of the aliased
// table to scope, binding the id as placeholder $n. Global scopes add no
// predicate and no argument.
func scopeClause(scope models.Scope, alias string, n int) (string, []any) {
	switch scope.Kind {
	case models.ScopeCategory:
		return fmt.Sprintf(" AND %s.category_id = $%d", alias, n), []any{scope.ID}
	case models.ScopeUserCategory:
		return fmt.Sprintf(" AND %s.user_category_id = $%d", alias, n), []any{scope.ID}
	default:
		return "", nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
