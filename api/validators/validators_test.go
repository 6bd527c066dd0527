package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
)

type pinBody struct {
	PostID int64 `json:"post_id" validate:"required,gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	var body pinBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"post_id":42}`))
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PostID != 42 {
		t.Fatalf("unexpected post id %d", body.PostID)
	}
}

func TestDecodeJSONBodyRejectsUnknownAndInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"post_id":1,"extra":true}`,
		"malformed":     `{"post_id":`,
		"missing":       `{}`,
		"negative":      `{"post_id":-3}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var body pinBody
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			err := DecodeJSONBody(req, &body)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var body pinBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Message() != "request body is required" {
		t.Fatalf("expected missing body error, got %v", err)
	}
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestParseParams(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
	got, err := ParseUUIDParam(req, "id")
	if err != nil || got != id {
		t.Fatalf("ParseUUIDParam = %s, %v", got, err)
	}
	if _, err := ParseUUIDParam(withParam(req, "id", "nope"), "id"); err == nil {
		t.Fatal("expected uuid error")
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "post_id", "42")
	postID, err := ParseInt64Param(req, "post_id")
	if err != nil || postID != 42 {
		t.Fatalf("ParseInt64Param = %d, %v", postID, err)
	}
	for _, bad := range []string{"0", "-1", "abc"} {
		if _, err := ParseInt64Param(withParam(req, "post_id", bad), "post_id"); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParsePageParams(t *testing.T) {
	params, err := ParsePageParams(httptest.NewRequest(http.MethodGet, "/history", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != pagination.DefaultLimit || params.Cursor != "" {
		t.Fatalf("unexpected defaults %+v", params)
	}

	params, err = ParsePageParams(httptest.NewRequest(http.MethodGet, "/history?limit=5&cursor=%20abc%20", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != 5 || params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", params)
	}

	for _, raw := range []string{"0", "-1", "101", "ten"} {
		_, err := ParsePageParams(httptest.NewRequest(http.MethodGet, "/history?limit="+raw, nil))
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("limit=%s: expected validation error, got %v", raw, err)
		}
	}
}
