package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
)

const actorKey = "auth.actor"

var ErrNotAuthenticated = errors.New("Not authenticated")

// Actor is the authenticated caller of an operation. Handlers read it from
// the request and pass it to services explicitly.
type Actor struct {
	UserID int
	Email  string
	Role   Role
}

func (a Actor) Authenticated() bool {
	return a.UserID > 0 && a.Role.Valid()
}

func (a Actor) Is(role Role) bool {
	return a.Role == role
}

func SetActor(c *gin.Context, a Actor) {
	c.Set(actorKey, a)
}

func ActorFrom(c *gin.Context) (Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return Actor{}, false
	}

	a, ok := v.(Actor)
	if !ok || !a.Authenticated() {
		return Actor{}, false
	}

	return a, true
}

func GetUserID(c *gin.Context) (int, bool) {
	a, ok := ActorFrom(c)
	if !ok {
		return 0, false
	}
	return a.UserID, true
}
