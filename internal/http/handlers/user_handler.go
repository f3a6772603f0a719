// User role and principal HTTP handlers.
//
//   - GET /me                     (current principal)
//   - GET /admin/users/{id}       (role record)
//   - PUT /admin/users/{id}/role  (assign role)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetRoleRequest is the JSON payload for assigning a role.
type SetRoleRequest struct {
	// Role is one of base, staff, admin.
	Role string `json:"role" binding:"required" example:"staff"`
	// Plan is an optional subscription label stored with the record.
	Plan string `json:"plan" binding:"max=64" example:"premium"`
}

// MeResponse describes the principal the request was authenticated as.
type MeResponse struct {
	ID     string         `json:"id" example:"user123"`
	Role   string         `json:"role" example:"staff"`
	Claims map[string]any `json:"claims,omitempty"`
}

// Me godoc
// @ID          me
// @Summary     Current principal
// @Description Returns the verified principal id, its token role and the decoded claims.
// @Tags        Identity
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.MeResponse
// @Failure     401  {object} handlers.ErrorResponse "Invalid credential"
// @Failure     403  {object} handlers.ErrorResponse "Missing credential"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	p, found := principal(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, MeResponse{ID: p.ID, Role: p.Role, Claims: p.RawClaims})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a role record
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "User ID"  example(user123)
//
// @Success     200  {object} domain.User
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /admin/users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// SetUserRole godoc
// @ID          setUserRole
// @Summary     Assign a role
// @Description Creates or updates the role record of a user. The change applies to their next privileged request.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                     true  "User ID"  example(user123)
// @Param       body  body  handlers.SetRoleRequest    true  "Role assignment"
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request or invalid role"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Router      /admin/users/{id}/role [put]
func (h *Handlers) SetUserRole(c *gin.Context) {
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}
	u, err := h.userSvc.SetRole(c.Request.Context(), c.Param("id"), req.Role, req.Plan)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}
