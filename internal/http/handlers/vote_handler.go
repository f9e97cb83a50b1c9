// Vote HTTP handlers.
//
// This file exposes the vote endpoints:
//   - POST   /vote   (add the viewer's vote)
//   - DELETE /vote   (withdraw the viewer's vote)
//
// The voter is the student identity cookie the client sent back on this
// request. A first-time visitor has none yet, so their first vote attempt is
// a 400 and the freshly issued cookie makes the retry succeed.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/http/middleware"
)

// VoteRequest is the payload of both vote endpoints.
type VoteRequest struct {
	SuggestionID FlexID `json:"suggestionId" form:"suggestionId" swaggertype:"integer" example:"1"`
}

// AddVote godoc
// @ID          addVote
// @Summary     Vote for a suggestion
// @Description Records one vote per student per suggestion. A second vote is a 409.
// @Tags        Votes
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.VoteRequest  true  "Target suggestion"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing suggestion id or identity cookie"
// @Failure     409  {object}  handlers.ErrorResponse  "Already voted"
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /vote [post]
func (h *Handlers) AddVote(c *gin.Context) {
	var req VoteRequest
	if err := bind(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := h.votes.Add(c.Request.Context(), uint(req.SuggestionID), middleware.StudentFrom(c)); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "vote added"})
}

// RemoveVote godoc
// @ID          removeVote
// @Summary     Withdraw a vote
// @Description Removes the viewer's vote. Removing a vote that does not exist is a 404.
// @Tags        Votes
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.VoteRequest  true  "Target suggestion"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing suggestion id or identity cookie"
// @Failure     404  {object}  handlers.ErrorResponse  "Not voted yet"
// @Failure     500  {object}  handlers.ErrorResponse  "Store error"
// @Failure     503  {object}  handlers.ErrorResponse  "Database busy"
// @Router      /vote [delete]
func (h *Handlers) RemoveVote(c *gin.Context) {
	var req VoteRequest
	if err := bind(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := h.votes.Remove(c.Request.Context(), uint(req.SuggestionID), middleware.StudentFrom(c)); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "vote removed"})
}
