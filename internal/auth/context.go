package auth

import (
	"context"
	"fmt"

	"github.com/egov-portal/reserve-service/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID   string
	Username string
	Roles    []string
	IsAdmin  bool
}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUser(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

func GetUserID(ctx context.Context) (string, error) {
	user, err := GetUser(ctx)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}

func IsAdmin(ctx context.Context) bool {
	user, err := GetUser(ctx)
	if err != nil {
		return false
	}
	return user.IsAdmin
}

// GetPrincipal returns the caller identity used by the reservation service.
func GetPrincipal(ctx context.Context) (models.Principal, error) {
	user, err := GetUser(ctx)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{UserID: user.UserID, IsAdmin: user.IsAdmin}, nil
}
