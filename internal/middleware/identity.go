package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

const requesterKey = "requester"

func setRequester(c echo.Context, who model.Requester) {
	c.Set(requesterKey, who)
	c.Set("user_id", who.UserID)
	c.Set("role", who.Role)
}

// Requester returns the requester stored by JWTAuth or OptionalJWT, or an
// anonymous requester when neither ran.
func Requester(c echo.Context) model.Requester {
	if who, ok := c.Get(requesterKey).(model.Requester); ok {
		return who
	}
	return model.Requester{}
}

// userID is the rate-limit key component for the requester; "guest" when
// anonymous.
func userID(c echo.Context) string {
	who := Requester(c)
	if who.UserID == 0 {
		return "guest"
	}
	return strconv.FormatUint(who.UserID, 10)
}
