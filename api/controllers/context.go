package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

// currentUserID reads the identity the middleware resolved for this request.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed user id in context")
	}
	return id, nil
}
