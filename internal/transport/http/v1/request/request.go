// Package request decodes and validates inbound HTTP payloads.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

var (
	validate = newValidator()
	decoder  = newDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "schema"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}

		return f.Name
	})

	return v
}

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := ParseTime(s)
		if err != nil {
			return reflect.Value{}
		}

		return reflect.ValueOf(t)
	})

	return d
}

// ParseTime accepts RFC 3339 timestamps and plain dates (UTC midnight).
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}

	return t, nil
}

// DecodeJSON reads a JSON body into dst and validates it. Unknown fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.ValidationErr("invalid request body", map[string]string{"body": err.Error()})
	}

	return Validate(dst)
}

// DecodeQuery reads the URL query into dst and validates it.
func DecodeQuery(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		fields := map[string]string{}
		var multi schema.MultiError
		if errors.As(err, &multi) {
			for key := range multi {
				fields[key] = "invalid value"
			}
		} else {
			fields["query"] = err.Error()
		}

		return apperr.ValidationErr("invalid query parameters", fields)
	}

	return Validate(dst)
}

// Validate runs struct tags of dst and reports failures keyed by field path.
func Validate(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.ValidationErr("invalid request", map[string]string{"request": err.Error()})
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe.Namespace())] = message(fe.Tag(), fe.Param())
	}

	return apperr.ValidationErr("invalid request", fields)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	return ns
}

func message(tag, param string) string {
	switch tag {
	case "required", "required_without":
		return "is required"
	case "excluded_with":
		return "must not be combined with " + strings.ToLower(param)
	case "oneof":
		return "must be one of: " + param
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	default:
		return "failed on " + tag
	}
}

// PathUUID parses a chi URL parameter as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.ValidationErr("invalid "+name, map[string]string{name: "must be a UUID"})
	}

	return id, nil
}

// Page fills absent page or limit query values with defaults. Present values are kept as is.
func Page(page, limit *int) pagination.Params {
	p := pagination.Params{Page: DefaultPage, PageSize: DefaultPageSize}
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.PageSize = *limit
	}

	return p
}
