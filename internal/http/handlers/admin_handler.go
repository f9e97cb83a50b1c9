// Admin login handler.
//
// POST /admin/login exchanges the configured admin id and passphrase for the
// static admin secret, which the client then sends as X-Admin-Key.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminLoginRequest is the payload of the admin login.
type AdminLoginRequest struct {
	ID         string `json:"id" form:"id" example:"admin"`
	Passphrase string `json:"passphrase" form:"passphrase" example:"correct horse battery staple"`
}

// AdminLoginResponse carries the admin secret.
type AdminLoginResponse struct {
	AdminSecret string `json:"adminSecret"`
}

// AdminLogin godoc
// @ID          adminLogin
// @Summary     Admin login
// @Description Returns the admin secret for valid credentials.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AdminLoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.AdminLoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed body"
// @Failure     401  {object}  handlers.ErrorResponse  "Login failed"
// @Router      /admin/login [post]
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := bind(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	secret, err := h.admin.Login(req.ID, req.Passphrase)
	if err != nil {
		failService(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, AdminLoginResponse{AdminSecret: secret})
}
