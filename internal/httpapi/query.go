package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"skillswap/internal/domain"
)

// queryInt parses an optional integer query parameter. Bad values are
// recorded in fields.
func queryInt(r *http.Request, key string, fields map[string]string) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fields[key] = "must be a non-negative integer"
		return 0
	}
	return n
}

func swapFilterFromQuery(r *http.Request) (domain.SwapListFilter, error) {
	fields := map[string]string{}
	q := r.URL.Query()
	f := domain.SwapListFilter{
		Role:   domain.SwapListRole(strings.TrimSpace(q.Get("role"))),
		Status: domain.SwapStatus(strings.TrimSpace(q.Get("status"))),
		Limit:  queryInt(r, "limit", fields),
		Offset: queryInt(r, "offset", fields),
	}
	if len(fields) > 0 {
		return domain.SwapListFilter{}, domain.NewValidationError(fields)
	}
	return f, nil
}
