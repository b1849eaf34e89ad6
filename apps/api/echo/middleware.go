package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(func(claims Claims) bool { return claims.IsAdmin })
}

// teacherMiddleware lets teachers and admins through.
func teacherMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(func(claims Claims) bool { return claims.IsTeacher || claims.IsAdmin })
}

// learnerMiddleware lets learners and admins through.
func learnerMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(func(claims Claims) bool { return claims.IsLearner || claims.IsAdmin })
}

func roleMiddleware(allowed func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allowed(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
