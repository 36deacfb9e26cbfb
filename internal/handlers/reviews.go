package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

const maxReviewBodySize = 32 * 1024

// ReviewHandlers exposes the authenticated review submission endpoint.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes registers the authenticated /products endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/{productID}/reviews", h.createReview)
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(ctx, w, "review")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req createReviewRequest
	if !decodeJSONBody(ctx, w, r, maxReviewBodySize, &req, false) {
		return
	}

	author := strings.TrimSpace(identity.DisplayName)
	if author == "" {
		author, _, _ = strings.Cut(identity.Email, "@")
	}
	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		ProductID:  services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID"))),
		AccountID:  identity.UID,
		AuthorName: author,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"review": buildReviewPayload(review)})
}
