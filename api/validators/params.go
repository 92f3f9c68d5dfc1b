package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// ParseUUIDParam reads a uuid from the named chi route parameter.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Invalid(name, "must be a uuid")
	}
	return id, nil
}

// ParseOptionalDate parses an optional YYYY-MM-DD request field. Unlike
// stored dates, malformed input is rejected.
func ParseOptionalDate(field string, raw *string) (*types.Date, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := types.ParseDate(*raw)
	if err != nil {
		return nil, pkgerrors.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

// ParseDate parses a required YYYY-MM-DD request field.
func ParseDate(field, raw string) (types.Date, error) {
	d, err := ParseOptionalDate(field, &raw)
	if err != nil {
		return types.Date{}, err
	}
	if d == nil {
		return types.Date{}, pkgerrors.Invalid(field, "is required")
	}
	return *d, nil
}
