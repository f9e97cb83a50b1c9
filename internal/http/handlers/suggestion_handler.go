// Suggestion HTTP handlers.
//
// This file exposes REST endpoints for suggestions:
//   - GET  /suggestions   (feed, newest first, annotated for the viewer)
//   - POST /suggestions   (anonymous create, Idempotency-Key aware)
//   - GET  /categories    (categories a suggestion may reference)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and the key was already
// used by the same student for a create, nothing is written again and the
// response carries `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/http/middleware"
	"github.com/tbourn/suggestion-box/internal/services"
)

// CreateSuggestionRequest is the payload for creating a suggestion.
type CreateSuggestionRequest struct {
	Title      string `json:"title" form:"title" maxLength:"200" example:"Fix printer"`
	Content    string `json:"content" form:"content" example:"The library printer jams daily"`
	CategoryID FlexID `json:"categoryId" form:"categoryId" swaggertype:"integer" example:"1"`
}

// ListSuggestions godoc
// @ID          listSuggestions
// @Summary     List suggestions
// @Description Returns every suggestion, newest first, with vote and reply counts.
// @Description `voted` is true only when the request carried the viewer's own identity cookie.
// @Tags        Suggestions
// @Produce     json
//
// @Success     200  {array}   domain.SuggestionView
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /suggestions [get]
func (h *Handlers) ListSuggestions(c *gin.Context) {
	out, err := h.suggestions.List(c.Request.Context(), middleware.StudentFrom(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// CreateSuggestion godoc
// @ID          createSuggestion
// @Summary     Submit a suggestion
// @Description Stores an anonymous suggestion with the default status. Only an acknowledgment is returned.
// @Description Supports idempotency via the Idempotency-Key header (same key → written once).
// @Tags        Suggestions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID)"
// @Param       body             body    handlers.CreateSuggestionRequest  true  "Suggestion payload"
//
// @Success     200  {object}  handlers.MessageResponse
// @Header      200  {string}  Idempotency-Replayed  "true when the key was already used"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing field or unknown category"
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /suggestions [post]
func (h *Handlers) CreateSuggestion(c *gin.Context) {
	if middleware.IsReplay(c) {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, MessageResponse{Message: "ok"})
		return
	}

	var req CreateSuggestionRequest
	if err := bind(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	replayed, err := h.suggestions.CreateOnce(c.Request.Context(), middleware.StudentFrom(c), key, services.CreateSuggestionInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: uint(req.CategoryID),
	})
	if err != nil {
		failService(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, MessageResponse{Message: "ok"})
}

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Tags        Suggestions
// @Produce     json
//
// @Success     200  {array}   domain.Category
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	out, err := h.suggestions.Categories(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
