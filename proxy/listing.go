package proxy

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultListColumns are the user attributes printed by a listing.
var DefaultListColumns = []string{"user_id", "user_email", "user_role", "teams", "created_at", "updated_at"}

var sensitiveUserKeys = MakeSet[string]([]string{"password", "hashed_password", "salt", "token"})

type ListFilter struct {
	// ShowAll includes users with no email or an external role.
	ShowAll   bool
	Role      string
	EmailLike string
}

// NormalizeRole folds a role name and checks it against the internal roles.
func NormalizeRole(role string) (result string, err error) {
	result = cases.Fold().String(strings.TrimSpace(role))
	if !InternalRoles.Has(result) {
		var roles = InternalRoles.ToArray()
		slices.Sort(roles)
		err = fmt.Errorf("invalid role '%s', must be one of: %s", role, strings.Join(roles, ", "))
	}
	return
}

// FilterUsers keeps the users accepted by filter, in listing order.
func FilterUsers(users []*ObservedUser, filter ListFilter) (result []*ObservedUser) {
	for _, u := range users {
		if !filter.ShowAll && !u.IsValid() {
			continue
		}
		if len(filter.Role) > 0 && u.Role != filter.Role {
			continue
		}
		if len(filter.EmailLike) > 0 && !ContainsFold(u.Email, filter.EmailLike) {
			continue
		}
		result = append(result, u)
	}
	return
}

// ParseColumns splits a comma separated column list. Empty means DefaultListColumns.
// Sensitive attributes are dropped.
func ParseColumns(columns string) (result []string) {
	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); len(c) > 0 && !sensitiveUserKeys.Has(c) {
			result = append(result, c)
		}
	}
	if len(result) == 0 {
		result = DefaultListColumns
	}
	return
}

// UserRow renders the requested attributes of a user.
func UserRow(u *ObservedUser, columns []string) (row []string) {
	for _, c := range columns {
		if sensitiveUserKeys.Has(c) {
			row = append(row, "")
			continue
		}
		row = append(row, FormatValue(u.Raw[c]))
	}
	return
}
