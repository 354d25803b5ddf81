package repo

import "strings"

var allowedOrderBy = map[string]string{
	"created_at": "created_at",
	"expires_at": "expires_at",
	"size_bytes": "size_bytes",
	"id":         "id",
}

func sanitizeOrderBy(orderBy string) string {
	key := strings.ToLower(strings.TrimSpace(orderBy))
	return allowedOrderBy[key]
}
