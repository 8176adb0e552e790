package auth

import (
	"context"
	"errors"
	"fmt"

	"regportal/internal/model"
	"regportal/internal/repo"
)

type CredentialStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	GetSectorAdminByUsername(ctx context.Context, username string) (*model.SectorAdmin, error)
}

// Authenticator checks console credentials and mints session tokens.
type Authenticator struct {
	store  CredentialStore
	tokens *TokenManager
}

func NewAuthenticator(store CredentialStore, tokens *TokenManager) *Authenticator {
	return &Authenticator{store: store, tokens: tokens}
}

func (a *Authenticator) Tokens() *TokenManager {
	return a.tokens
}

func (a *Authenticator) LoginAdmin(ctx context.Context, username, password string) (Identity, string, error) {
	admin, err := a.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Identity{}, "", ErrInvalidCredentials
		}
		return Identity{}, "", fmt.Errorf("failed to load admin: %w", err)
	}
	if !CheckPassword(admin.PasswordHash, password) {
		return Identity{}, "", ErrInvalidCredentials
	}

	id := Identity{Role: RoleAdmin, UserID: admin.ID, Username: admin.Username}
	token, err := a.tokens.Issue(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

func (a *Authenticator) LoginSector(ctx context.Context, username, password string) (Identity, string, error) {
	sa, err := a.store.GetSectorAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Identity{}, "", ErrInvalidCredentials
		}
		return Identity{}, "", fmt.Errorf("failed to load sector admin: %w", err)
	}
	if !CheckPassword(sa.PasswordHash, password) {
		return Identity{}, "", ErrInvalidCredentials
	}

	id := Identity{Role: RoleSector, UserID: sa.ID, Username: sa.Username, SectorID: sa.SectorID}
	if sa.Sector != nil {
		id.SectorName = sa.Sector.Name
	}
	token, err := a.tokens.Issue(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}
