package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/cache"
	"github.com/mwl-dev/lemongate/internal/dto"
	"github.com/mwl-dev/lemongate/internal/models"
	"github.com/mwl-dev/lemongate/internal/secrets"
	"github.com/mwl-dev/lemongate/internal/token"
)

// userCacheKind namespaces user lookups in the shared cache.
const userCacheKind = "user"

var ErrUserNotFound = apperr.NotFound("user not found")

type AuthService struct {
	db      *gorm.DB
	cache   cache.Cache
	secrets secrets.Store
	google  *GoogleJWKSClient
}

func NewAuthService(db *gorm.DB, c cache.Cache, store secrets.Store, google *GoogleJWKSClient) *AuthService {
	return &AuthService{db: db, cache: c, secrets: store, google: google}
}

// RegisterAnonymous creates a user with nothing but an id and a freshly
// minted token. Profile fields arrive later if the user ever signs in
// with Google.
func (s *AuthService) RegisterAnonymous(ctx context.Context) (*models.User, error) {
	secret, err := s.secrets.Get(ctx, secrets.LemonSigningSecret)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	tok, err := token.Mint(id.String(), time.Now().Unix(), secret)
	if err != nil {
		return nil, err
	}

	user := &models.User{ID: id, Token: tok}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.cache.InvalidateKind(ctx, userCacheKind)
	return user, nil
}

// FindByToken authorizes a caller-held token by value against the user
// table. The token must both decode and match a stored record.
func (s *AuthService) FindByToken(ctx context.Context, tok string) (*models.User, error) {
	secret, err := s.secrets.Get(ctx, secrets.LemonSigningSecret)
	if err != nil {
		return nil, err
	}
	if _, err := token.Verify(tok, secret); err != nil {
		return nil, err
	}
	return s.findUserBy(ctx, "token", tok)
}

// GoogleSignIn implements the resolve-or-create flow. Resolution
// priority: an existing token that decodes to a known user wins, then a
// user with the same email, then a brand-new user. Either way the call
// ends in exactly one upsert, so a replayed credential converges on the
// same record.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *dto.GoogleSignInRequest) (*models.User, error) {
	clientIDs, err := s.googleClientIDs(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := s.google.VerifyCredential(req.Credential, clientIDs)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, apperr.Validation(`"email" not exists`)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid %q", email))
	}

	user, err := s.resolveUser(ctx, req.Token, email)
	if err != nil {
		return nil, err
	}

	user.Email = email
	user.Name = strings.TrimSpace(claims.Name)
	user.Avatar = strings.TrimSpace(claims.Picture)
	user.UpdatedAt = time.Now()

	// The token is deliberately not rotated on repeat logins: tokens on
	// the user's other devices would silently stop working and there is
	// no revocation path to pair a rotation with.

	if err := s.upsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) resolveUser(ctx context.Context, existingToken, email string) (*models.User, error) {
	if existingToken != "" {
		user, err := s.FindByToken(ctx, existingToken)
		if err == nil {
			return user, nil
		}
		// An unusable token falls back to email resolution rather than
		// failing the login outright.
		slog.Info("google sign-in: supplied token unusable, falling back to email", "error", err)
	}

	user, err := s.findUserBy(ctx, "email", email)
	if err == nil {
		return user, nil
	}
	if err != ErrUserNotFound {
		return nil, err
	}

	secret, err := s.secrets.Get(ctx, secrets.LemonSigningSecret)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	tok, err := token.Mint(id.String(), time.Now().Unix(), secret)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &models.User{ID: id, Token: tok, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *AuthService) upsertUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	s.cache.InvalidateKind(ctx, userCacheKind)
	return nil
}

// findUserBy is the single cached lookup path for both token and email
// lookups, mirroring the one cache the upsert invalidates.
func (s *AuthService) findUserBy(ctx context.Context, column, value string) (*models.User, error) {
	key := column + "|" + value
	if cached, hit := s.cache.Get(ctx, userCacheKind, key); hit {
		var user *models.User
		if err := json.Unmarshal(cached, &user); err == nil {
			if user == nil {
				return nil, ErrUserNotFound
			}
			return user, nil
		}
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where(column+" = ?", value).Limit(1).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to look up user by %s: %w", column, err)
	}

	if len(users) == 0 {
		s.cache.Set(ctx, userCacheKind, key, []byte("null"))
		return nil, ErrUserNotFound
	}

	user := &users[0]
	if encoded, err := json.Marshal(user); err == nil {
		s.cache.Set(ctx, userCacheKind, key, encoded)
	}
	return user, nil
}

func (s *AuthService) googleClientIDs(ctx context.Context) ([]string, error) {
	raw, err := s.secrets.Get(ctx, secrets.GoogleOAuthClientID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperr.Configuration("no google oauth client ids configured")
	}
	return ids, nil
}
