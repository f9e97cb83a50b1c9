// Reply HTTP handlers.
//
// This file exposes the reply thread endpoints:
//   - GET  /replies/{suggestionId}   (thread, oldest first, weak ETag)
//   - POST /replies                  (admin only, X-Admin-Key)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/utils"
)

// CreateReplyRequest is the payload for posting a reply.
type CreateReplyRequest struct {
	SuggestionID FlexID `json:"suggestionId" form:"suggestionId" swaggertype:"integer" example:"1"`
	Content      string `json:"content" form:"content" example:"Ticket filed with facilities"`
}

// ListReplies godoc
// @ID          listReplies
// @Summary     List replies of a suggestion
// @Description Returns the admin replies of a suggestion, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Replies
// @Produce     json
//
// @Param       suggestionId   path    int     true  "Suggestion ID"  minimum(1)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.ReplyView
// @Header      200  {string}  ETag  "Weak ETag for current thread"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad suggestion id"
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /replies/{suggestionId} [get]
func (h *Handlers) ListReplies(c *gin.Context) {
	ctx := c.Request.Context()
	sid, valid := utils.ParseID(c.Param("suggestionId"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "suggestionId must be a positive integer")
		return
	}

	// ETag pre-check (best effort).
	if count, last, err := h.replies.Stats(ctx, sid); err == nil {
		var ts int64
		if last != nil {
			ts = last.UnixNano()
		}
		etag := fmt.Sprintf(`W/"replies:%d:%d:%d"`, sid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	out, err := h.replies.List(ctx, sid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// CreateReply godoc
// @ID          createReply
// @Summary     Post an admin reply
// @Description Appends a reply to a suggestion. Requires the admin secret in X-Admin-Key.
// @Tags        Replies
// @Accept      json
// @Produce     json
//
// @Param       X-Admin-Key  header  string  true  "Admin secret from /admin/login"
// @Param       body         body    handlers.CreateReplyRequest  true  "Reply payload"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing field or unknown suggestion"
// @Failure     403  {object}  handlers.ErrorResponse  "Missing or wrong admin secret"
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /replies [post]
func (h *Handlers) CreateReply(c *gin.Context) {
	var req CreateReplyRequest
	if err := bind(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := h.replies.Add(c.Request.Context(), c.GetHeader(HeaderAdminKey), uint(req.SuggestionID), req.Content); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "reply added"})
}
