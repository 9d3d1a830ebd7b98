package cart

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/api/middleware"
	"github.com/angelmondragon/bakery-backend/api/responses"
	"github.com/angelmondragon/bakery-backend/api/validators"
	cartsvc "github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// CartFetch returns the caller's cart, creating an empty one on first use.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		c, err := svc.GetOrCreate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required"))
			return
		}
		c, err := svc.AddItem(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

// CartUpdateItem sets a line quantity. Zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.UpdateItem(r.Context(), id, lineRef(payload.Index, payload.ProductID), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

// CartRemoveItem deletes the line named by the index or product_id query parameter.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		ref, err := lineRefFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveItem(r.Context(), id, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		if err := svc.ClearCart(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func CartRefresh(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		c, changed, err := svc.RefreshCart(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, RefreshResponse{Cart: c, Changed: changed})
	})
}

func CartValidate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		issues, err := svc.ValidateCart(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newValidateResponse(issues))
	})
}

// CartMerge folds the guest cart named by the session header into the signed-in
// user's cart.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to merge a guest cart"))
			return
		}
		c, err := svc.MergeGuestCart(r.Context(), middleware.GuestSessionFromContext(r.Context()), *userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

// CartGuestInfo attaches contact details to a guest cart ahead of checkout.
func CartGuestInfo(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withIdentity(svc, logg, func(w http.ResponseWriter, r *http.Request, id identity.Identity) {
		var payload GuestInfoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.SetGuestInfo(r.Context(), id, payload.toInfo())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	})
}

type identityHandler func(w http.ResponseWriter, r *http.Request, id identity.Identity)

func withIdentity(svc cartsvc.Service, logg *logger.Logger, next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		id, err := identity.Resolve(
			middleware.UserUUIDFromContext(r.Context()),
			middleware.GuestSessionFromContext(r.Context()),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, id)
	}
}

func lineRefFromQuery(r *http.Request) (cartsvc.LineRef, error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("index")); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil || index < 0 {
			return cartsvc.LineRef{}, pkgerrors.New(pkgerrors.CodeValidation, "index must be a non-negative integer")
		}
		return cartsvc.AtIndex(index), nil
	}
	if raw := strings.TrimSpace(query.Get("product_id")); raw != "" {
		productID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.LineRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
		}
		return cartsvc.ForProduct(productID), nil
	}
	return cartsvc.LineRef{}, pkgerrors.New(pkgerrors.CodeValidation, "index or product_id is required")
}
