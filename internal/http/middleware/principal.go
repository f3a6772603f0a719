package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

const (
	principalKey = "principal"
	// UserIDKey holds the principal id as a plain string for loggers and
	// handlers that only need the id.
	UserIDKey = "userID"
)

// SetPrincipal attaches p to the request and adds user_id and role to the
// request-scoped logger.
func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(principalKey, p)
	c.Set(UserIDKey, p.ID)

	l := LoggerFrom(c).With().
		Str("user_id", p.ID).
		Str("role", p.Role).
		Logger()
	c.Set(loggerKey, &l)
}

// PrincipalFrom returns the principal attached by SetPrincipal.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok && !p.IsZero()
}
