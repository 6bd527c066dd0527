package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
)

// ParsePageParams reads ?limit and ?cursor for the list endpoints. The cursor
// is passed through opaque; services reject ones they cannot decode.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	params := pagination.Params{
		Limit:  pagination.DefaultLimit,
		Cursor: strings.TrimSpace(query.Get("cursor")),
	}

	raw := strings.TrimSpace(query.Get("limit"))
	if raw == "" {
		return params, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a whole number").
			WithDetails(map[string]any{"field": "limit"})
	}
	if limit < 1 || limit > pagination.MaxLimit {
		return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
			WithDetails(map[string]any{"field": "limit", "min": 1, "max": pagination.MaxLimit})
	}
	params.Limit = limit
	return params, nil
}
