package common

import (
	"errors"
	"net/http"

	"github.com/noah-isme/simrig-store/internal/order"
	"github.com/noah-isme/simrig-store/internal/pricing"
	"github.com/noah-isme/simrig-store/internal/shipping"
)

// Domain error codes exposed on the API.
const (
	CodeUnknownOption        = "UNKNOWN_OPTION"
	CodeMultipleSelections   = "MULTIPLE_SELECTIONS_IN_GROUP"
	CodeMissingRequiredGroup = "MISSING_REQUIRED_GROUP"
	CodeZoneNotFound         = "ZONE_NOT_FOUND"
	CodePriceMismatch        = "PRICE_MISMATCH"
)

// FromDomainError translates pricing, shipping and reconciliation failures into
// AppErrors. It returns nil for errors it does not recognise.
func FromDomainError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		code := CodeUnknownOption
		switch {
		case errors.Is(err, pricing.ErrMultipleSelectionsInGroup):
			code = CodeMultipleSelections
		case errors.Is(err, pricing.ErrMissingRequiredGroup):
			code = CodeMissingRequiredGroup
		}
		out := NewAppError(code, verr.Error(), http.StatusUnprocessableEntity, err)
		details := map[string]any{}
		if verr.OptionID != "" {
			details["optionId"] = verr.OptionID
		}
		if verr.Group != "" {
			details["group"] = verr.Group
		}
		if len(details) > 0 {
			return out.WithDetails(details)
		}
		return out
	}

	if errors.Is(err, shipping.ErrZoneNotFound) {
		return NewAppError(CodeZoneNotFound, "no shipping zone serves this postal code", http.StatusUnprocessableEntity, err)
	}

	var mismatch *order.MismatchError
	if errors.As(err, &mismatch) {
		details := map[string]any{
			"field":    mismatch.Field,
			"expected": mismatch.Expected.StringFixed(2),
			"actual":   mismatch.Actual.StringFixed(2),
		}
		if mismatch.ItemIndex >= 0 {
			details["itemIndex"] = mismatch.ItemIndex
		}
		return NewAppError(CodePriceMismatch, "submitted prices do not match", http.StatusConflict, err).WithDetails(details)
	}
	if errors.Is(err, order.ErrPriceMismatch) {
		return NewAppError(CodePriceMismatch, "submitted prices do not match", http.StatusConflict, err)
	}
	if errors.Is(err, order.ErrEmptyOrder) {
		return NewAppError("BAD_REQUEST", "order has no items", http.StatusBadRequest, err)
	}
	return nil
}

// WriteError renders err using the canonical error shape.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if appErr := FromDomainError(err); appErr != nil {
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		message := appErr.Message
		if message == "" {
			message = appErr.Error()
		}
		JSONError(w, appErr.status(), code, message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
