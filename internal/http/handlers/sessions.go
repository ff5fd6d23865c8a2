package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"podstudio/internal/domain"
	"podstudio/internal/middleware"
	"podstudio/internal/session"
)

type sessionResponse struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Busy      string        `json:"busy,omitempty"`
	State     session.State `json:"state"`
}

type productRequest struct {
	ProductID int64 `json:"product_id"`
}

type variantRequest struct {
	VariantID int64 `json:"variant_id"`
}

type placementsRequest struct {
	Placements []domain.PlacementID `json:"placements"`
}

type sourcesRequest struct {
	Primary   *domain.ImageRef `json:"primary"`
	Secondary *domain.ImageRef `json:"secondary"`
}

type generateRequest struct {
	Guidance string `json:"guidance"`
}

type remixRequest struct {
	Instruction string `json:"instruction"`
}

type publishRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	ThumbnailURL string `json:"thumbnail_url"`
	Theme        string `json:"theme"`
}

type saveRequest struct {
	Kind  domain.DesignKind `json:"kind"`
	Title string            `json:"title"`
}

func (a *App) respondSession(w http.ResponseWriter, status int, sess *session.Session, state session.State) {
	a.json(w, status, sessionResponse{ID: sess.ID, CreatedAt: sess.CreatedAt, Busy: sess.Busy(), State: state})
}

// loadSession resolves {id} for the current user, writing the error response
// itself when it cannot.
func (a *App) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	sess, err := a.Sessions.Get(userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	sess := a.Sessions.Create(userID)
	a.logger().Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("session created")
	a.respondSession(w, http.StatusCreated, sess, sess.View())
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.respondSession(w, http.StatusOK, sess, sess.View())
}

func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if err := a.Sessions.Delete(userID, chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SessionProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ProductID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "product_id required")
		return
	}
	state, err := a.Flow.SelectProduct(r.Context(), sess, req.ProductID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionVariant(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req variantRequest
	if err := decodeJSON(w, r, &req); err != nil || req.VariantID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "variant_id required")
		return
	}
	state, err := a.Flow.SelectVariant(r.Context(), sess, req.VariantID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionPlacements(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req placementsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	state, err := a.Flow.SelectPlacements(sess, req.Placements)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionSources(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req sourcesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	for _, ref := range []*domain.ImageRef{req.Primary, req.Secondary} {
		if ref != nil && ref.Kind == domain.ImageRefLocalFile {
			a.fail(w, r, fmt.Errorf("%w: local files cannot be referenced over the API", domain.ErrInvalidImageRef))
			return
		}
	}
	state, err := a.Flow.SetSources(sess, req.Primary, req.Secondary)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	ctx, cancel := a.stepContext(r)
	defer cancel()
	state, err := a.Flow.Generate(ctx, sess, req.Guidance)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionRemix(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req remixRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	ctx, cancel := a.stepContext(r)
	defer cancel()
	state, err := a.Flow.Remix(ctx, sess, req.Instruction)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionMockups(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.stepContext(r)
	defer cancel()
	state, err := a.Flow.RenderMockups(ctx, sess)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusOK, sess, state)
}

func (a *App) SessionPublish(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	draft := domain.ListingDraft{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ThumbnailURL: req.ThumbnailURL,
		Theme:        req.Theme,
		Locale:       middleware.LocaleFromContext(r.Context()),
	}
	ctx, cancel := a.stepContext(r)
	defer cancel()
	state, err := a.Flow.Publish(ctx, sess, draft)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respondSession(w, http.StatusCreated, sess, state)
}

func (a *App) SessionSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	if req.Kind == "" {
		req.Kind = domain.DesignKindDesign
	}
	if !req.Kind.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be design or photoshoot")
		return
	}
	ctx, cancel := a.stepContext(r)
	defer cancel()
	records, err := a.Flow.Save(ctx, sess, req.Kind, req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"items": records})
}

func (a *App) ProductGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid product id")
		return
	}
	product, variants, err := a.Catalog.Product(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"product": product, "variants": variants})
}
