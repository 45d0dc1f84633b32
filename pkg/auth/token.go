// Package auth handles sign-in, token refresh and the current user's
// identity as carried in the backend's JWT access tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates a token that cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates a token past its exp claim (or without one).
	ErrTokenExpired = errors.New("token expired")

	// ErrInsufficientClaims indicates a token with neither a user id nor an email.
	ErrInsufficientClaims = errors.New("token does not identify a user")
)

// Claim names used by ASP.NET Identity.
const (
	claimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimEmailAddress   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimRole           = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

// defaultFirstName is used when a token carries no usable name.
const defaultFirstName = "User"

// User is the signed-in user.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	Phone     string `json:"phone,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Decode parses a JWT without verifying its signature. The backend is the
// only party that verifies tokens.
func Decode(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim.
func ExpiresAt(claims jwt.MapClaims) (time.Time, bool) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether claims are expired at now. A missing exp
// counts as expired.
func IsExpired(claims jwt.MapClaims, now time.Time) bool {
	exp, ok := ExpiresAt(claims)
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// UserFromToken extracts the user from an unexpired token.
func UserFromToken(token string, now time.Time) (*User, error) {
	claims, err := Decode(token)
	if err != nil {
		return nil, err
	}
	if IsExpired(claims, now) {
		return nil, ErrTokenExpired
	}
	return userFromClaims(claims)
}

func userFromClaims(claims jwt.MapClaims) (*User, error) {
	id := claimString(claims, "sub", "userId", "id", "nameid", claimNameIdentifier)
	email := claimString(claims, "email", "emailaddress", claimEmailAddress)
	name := claimString(claims, "name", "Name", "DisplayName", "display_name", claimName)
	displayName := claimString(claims, "DisplayName", "display_name")
	username := claimString(claims, "unique_name", "username")

	firstName := claimString(claims, "firstName", "given_name", "FirstName")
	lastName := claimString(claims, "lastName", "family_name", "LastName")

	if firstName == "" && lastName == "" && displayName != "" {
		firstName, lastName = splitName(displayName)
	}
	if firstName == "" && lastName == "" && name != "" {
		firstName, lastName = splitName(name)
	}
	if firstName == "" {
		switch {
		case username != "":
			firstName = username
		case email != "":
			firstName, _, _ = strings.Cut(email, "@")
		}
	}
	if firstName == "" {
		firstName = defaultFirstName
	}

	if id == "" {
		id = email
	}
	if id == "" {
		return nil, ErrInsufficientClaims
	}

	return &User{
		ID:        id,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      ParseRole(claimString(claims, "role", "Role", "RoleName", "roleName", claimRole)),
		Phone:     claimString(claims, "phone", "phoneNumber", "PhoneNumber"),
		Avatar:    claimString(claims, "avatar", "picture"),
	}, nil
}

// claimString returns the first non-empty claim among names.
func claimString(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		v, ok := claims[name]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case []any:
			// multi-valued role claims
			if len(val) > 0 {
				s = fmt.Sprint(val[0])
			}
		default:
			s = fmt.Sprint(val)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
