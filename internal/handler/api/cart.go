package api

import (
	"encoding/json"
	"net/http"

	"github.com/davortega/attar/internal/cookie"
	"github.com/davortega/attar/internal/domain"
	"github.com/davortega/attar/internal/middleware"
	"github.com/davortega/attar/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// guestCookieMaxAge keeps the guest cart token for 30 days.
const guestCookieMaxAge = 30 * 24 * 60 * 60

// CartHandler handles all cart API routes
type CartHandler struct {
	cartService service.CartService
	cookies     *cookie.Config
	cookieName  string
	validate    *validator.Validate
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService service.CartService, cookies *cookie.Config, cookieName string) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		cookies:     cookies,
		cookieName:  cookieName,
		validate:    validator.New(),
	}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

type updateItemRequest struct {
	Quantity int32 `json:"quantity" validate:"required,gt=0"`
}

type cartResponse struct {
	Cart      *domain.Cart `json:"cart"`
	ItemCount int          `json:"itemCount"`
}

// Get handles GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := h.ownerOrIssueGuest(w, r)

	cart, err := h.cartService.GetCart(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Validated as uuids above.
	productID := uuid.MustParse(req.ProductID)
	variantID := uuid.MustParse(req.VariantID)

	owner := h.ownerOrIssueGuest(w, r)
	cart, err := h.cartService.AddItem(r.Context(), owner, productID, variantID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// UpdateItem handles PATCH /api/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := h.pathLineID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		respondError(w, r, domain.ErrCartNotFound)
		return
	}

	cart, err := h.cartService.UpdateItemQuantity(r.Context(), owner, lineID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// RemoveItem handles DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := h.pathLineID(w, r)
	if !ok {
		return
	}

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		respondError(w, r, domain.ErrCartNotFound)
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), owner, lineID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		respondError(w, r, domain.ErrCartNotFound)
		return
	}

	cart, err := h.cartService.ClearCart(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// Merge handles POST /api/cart/merge, invoked after login to fold the guest
// cart into the user's. The guest cookie is cleared on success so a retried
// merge finds nothing to do.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(middleware.UserIDHeader)
	if userID == "" {
		respondBadRequest(w, r, "Merge requires an authenticated user")
		return
	}

	guestID := cookie.Get(r, h.cookieName)
	if guestID == "" {
		// Nothing to merge; return the user cart as-is.
		cart, err := h.cartService.GetCart(r.Context(), domain.UserOwner(userID))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
		return
	}

	cart, err := h.cartService.MergeGuestCart(r.Context(), userID, guestID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.cookies.Clear(w, h.cookieName)
	respondJSON(w, http.StatusOK, cartResponse{Cart: cart, ItemCount: cart.ItemCount()})
}

// ownerOrIssueGuest returns the resolved owner, minting and setting a guest
// token when the request carries no identity at all.
func (h *CartHandler) ownerOrIssueGuest(w http.ResponseWriter, r *http.Request) domain.Owner {
	if owner, ok := middleware.GetOwner(r.Context()); ok {
		return owner
	}

	guestID := uuid.New().String()
	h.cookies.Set(w, h.cookieName, guestID, guestCookieMaxAge)
	return domain.GuestOwner(guestID)
}

// decode parses and validates a JSON request body. On failure it writes a
// 400 response and returns false.
func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondBadRequest(w, r, "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondBadRequest(w, r, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// pathLineID parses the {id} path segment as a line ID.
func (h *CartHandler) pathLineID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondBadRequest(w, r, "Invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}
