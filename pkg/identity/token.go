// Package identity extracts the acting user from bearer tokens issued by
// the external identity collaborator. The core never issues tokens and never
// authorizes; it only attributes mutations to an actor.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	appctx "stockcore/internal/core/context"
)

// Config holds token verification settings.
type Config struct {
	Secret string
	Issuer string
}

// Parser verifies HS256 tokens and extracts actor identity.
type Parser struct {
	config Config
}

func NewParser(config Config) *Parser {
	return &Parser{config: config}
}

// Claims are the token claims this core reads.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	SessionID string `json:"sid,omitempty"`
}

// Parse verifies the token and returns the actor it identifies.
func (p *Parser) Parse(tokenString string) (*appctx.ActorContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if p.config.Issuer != "" {
		if issuer, err := claims.GetIssuer(); err != nil || issuer != p.config.Issuer {
			return nil, fmt.Errorf("unexpected token issuer")
		}
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &appctx.ActorContext{
		UserID:    userID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}
