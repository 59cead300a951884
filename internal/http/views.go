package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/pagination"
)

// pagingChange reads the page and size query parameters into a loader change.
// Both are validated before anything is fetched.
func pagingChange(values url.Values) (pagination.Change, error) {
	var change pagination.Change
	if raw := strings.TrimSpace(values.Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return change, invalidParam("size", raw)
		}
		change.PageSize = size
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return change, invalidParam("page", raw)
		}
		change.PageIndex = &page
	}
	return change, nil
}

func invalidParam(name, value string) error {
	return &application.ValidationError{FieldErrors: []application.FieldError{{Field: name, Message: "valor inválido: " + strconv.Quote(value)}}}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.Join(errBadRequestBody, err)
	}
	return nil
}

// refererTarget is where a mutation was issued from, used as the return
// location when the session expires mid-request.
func refererTarget(r *http.Request, fallback string) string {
	if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			return u.RequestURI()
		}
	}
	return fallback
}
