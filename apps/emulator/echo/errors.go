package emulatorapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nurturehq/nurture/core"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
	errEmailExists          = echo.NewHTTPError(http.StatusBadRequest, "EMAIL_EXISTS")
	errInvalidRefresh       = echo.NewHTTPError(http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newHTTPErrorHandler maps errors onto the two wire dialects the emulator
// speaks: Google-style `{"error": {"message": ...}}` bodies for the identity
// surface and the success/message envelope for everything else.
func newHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		message := http.StatusText(http.StatusInternalServerError)

		if origErr, isHTTP := errors.Cause(err).(*echo.HTTPError); isHTTP {
			if origErr.Internal != nil {
				if herr, isWrapped := origErr.Internal.(*echo.HTTPError); isWrapped {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, isStr := origErr.Message.(string); isStr {
				message = m
			}
		} else if logger != nil {
			logger.Error(message, err)
		}

		if ctx.Response().Committed {
			return
		}
		var werr error
		if isIdentityPath(ctx.Path()) {
			werr = ctx.JSON(code, echo.Map{"error": echo.Map{"message": message}})
		} else {
			werr = ctx.JSON(code, echo.Map{"success": false, "error": message})
		}
		if werr != nil {
			ctx.Echo().Logger.Error(werr)
		}
	}
}

func isIdentityPath(pth string) bool {
	switch pth {
	case "/identity/signin", "/identity/signup", "/v1/token":
		return true
	}
	return false
}
