package emulatorapi

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// password policy
var (
	pwdMinLen = 8
	pwdMaxSim = .7

	errPwdTooShort = echo.NewHTTPError(http.StatusBadRequest, "WEAK_PASSWORD : password must contain at least 8 characters")
	errPwdSpace    = echo.NewHTTPError(http.StatusBadRequest, "WEAK_PASSWORD : password must not contain whitespace")
	errPwdAllNum   = echo.NewHTTPError(http.StatusBadRequest, "WEAK_PASSWORD : password cannot be entirely numeric")
	errPwdTooSim   = echo.NewHTTPError(http.StatusBadRequest, "WEAK_PASSWORD : password cannot be similar to the name or email")
)

// validatePassword applies the sign-up password policy:
// - minLen: 8
// - no whitespace
// - not all numeric
// - not similar to the account's name or email
func validatePassword(pwd, name, email string) error {
	if len(pwd) < pwdMinLen {
		return errPwdTooShort
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return errPwdSpace
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		return errPwdAllNum
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		return errPwdTooSim
	}
	return nil
}
