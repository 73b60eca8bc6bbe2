package shipping

import pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"

var (
	ErrInvalidShippingType = pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping type")
	ErrInvalidDistanceTier = pkgerrors.New(pkgerrors.CodeValidation, "invalid distance tier")
	ErrNoGroups            = pkgerrors.New(pkgerrors.CodeValidation, "at least one vendor group is required")
	ErrEmptyGroup          = pkgerrors.New(pkgerrors.CodeValidation, "vendor group has no line items")
	ErrNegativeFee         = pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must be non-negative")
	ErrInvalidQuantity     = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	ErrVendorMismatch      = pkgerrors.New(pkgerrors.CodeValidation, "line item belongs to another vendor")
)
