package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/domain"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
	"github.com/fizanakara/membership-engine/pkg/response"
)

// newValidator returns a validator that understands decimal amounts and calendar dates.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(domain.Date); ok {
			return d.Time
		}
		return nil
	}, domain.Date{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads the JSON body into dst and validates it. It writes the error response itself.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return false
	}

	if err := v.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			details := make(map[string]string, len(fieldErrors))
			for _, fe := range fieldErrors {
				details[fe.Field()] = fe.Tag()
			}
			response.Detailed(w, http.StatusBadRequest, customError.ErrCodeValidation, "Validation failed", details)
			return false
		}
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

// writeError maps service errors onto HTTP responses; anything unrecognized is a 500 logged with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var overpayment *customError.OverpaymentError
	if errors.As(err, &overpayment) {
		response.Detailed(w, http.StatusBadRequest, customError.ErrCodeOverpayment, customError.MessageOf(err), map[string]string{
			"contributionId": overpayment.ContributionID,
			"projectedTotal": overpayment.ProjectedTotal.String(),
			"amount":         overpayment.Amount.String(),
			"surplus":        overpayment.Surplus.String(),
		})
		return
	}

	status := 0
	switch {
	case errors.Is(err, customError.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, customError.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, customError.ErrInvalidReference):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, customError.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, customError.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, customError.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, customError.ErrRateLimited):
		status = http.StatusTooManyRequests
	default:
		response.InternalServerError(w, fallback, err)
		return
	}

	response.Detailed(w, status, customError.CodeOf(err), customError.MessageOf(err), nil)
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || value <= 0 {
		response.BadRequest(w, "Invalid "+name, err)
		return 0, false
	}
	return value, true
}

func pathYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil || year < 1900 || year > 2200 {
		response.BadRequest(w, "Invalid year", err)
		return 0, false
	}
	return year, true
}

func principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
		return nil, false
	}
	return p, true
}
