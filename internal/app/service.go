package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"specsmith/api/internal/auth"
	"specsmith/api/internal/authpw"
	"specsmith/api/internal/config"
	"specsmith/api/internal/policy"
	"specsmith/api/internal/session"
	"specsmith/api/internal/store"
	"specsmith/api/internal/templates"
)

// Session is the authenticated caller derived from a Bearer token.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	IsAdmin      bool
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) actor() policy.Actor {
	return policy.Actor{ID: s.UserID, IsAdmin: s.IsAdmin}
}

// dataStore is the slice of the Postgres store the service depends on.
type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)

	InsertDocumentation(context.Context, store.Documentation) error
	GetDocumentation(context.Context, string) (store.Documentation, error)
	ListDocumentationsByOwner(context.Context, string, int, int) ([]store.Documentation, int, error)
	UpdateDocumentation(context.Context, store.Documentation) error
	DeleteDocumentation(context.Context, string) error

	InsertDiagram(context.Context, store.Diagram) error
	GetDiagram(context.Context, string) (store.Diagram, error)
	ListDiagramsByDocumentation(context.Context, string) ([]store.Diagram, error)
	UpdateDiagram(context.Context, store.Diagram) error
	DeleteDiagram(context.Context, string) error

	InsertSrsDocument(context.Context, store.SrsDocument) error
	GetSrsDocument(context.Context, string) (store.SrsDocument, error)
	ListSrsDocumentsByOwner(context.Context, string, int, int) ([]store.SrsDocument, int, error)
	UpdateSrsDocument(context.Context, store.SrsDocument) error
	DeleteSrsDocument(context.Context, string) error
	InsertSrsRequirement(context.Context, store.SrsRequirement) error
	GetSrsRequirement(context.Context, string) (store.SrsRequirement, error)
	ListSrsRequirements(context.Context, string) ([]store.SrsRequirement, error)
	UpdateSrsRequirement(context.Context, store.SrsRequirement) error
	DeleteSrsRequirement(context.Context, string) error

	InsertSddDocument(context.Context, store.SddDocument) error
	GetSddDocument(context.Context, string) (store.SddDocument, error)
	ListSddDocumentsByOwner(context.Context, string, int, int) ([]store.SddDocument, int, error)
	UpdateSddDocument(context.Context, store.SddDocument) error
	DeleteSddDocument(context.Context, string) error
	InsertSddComponent(context.Context, store.SddComponent) error
	GetSddComponent(context.Context, string) (store.SddComponent, error)
	ListSddComponents(context.Context, string) ([]store.SddComponent, error)
	UpdateSddComponent(context.Context, store.SddComponent) error
	DeleteSddComponent(context.Context, string) error
	InsertSddDiagram(context.Context, store.SddDiagram) error
	GetSddDiagram(context.Context, string) (store.SddDiagram, error)
	ListSddDiagrams(context.Context, string) ([]store.SddDiagram, error)
	UpdateSddDiagram(context.Context, store.SddDiagram) error
	DeleteSddDiagram(context.Context, string) error

	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens, keyed by token hash.
type sessionStore interface {
	Save(ctx context.Context, tokenHash string, identity session.Identity, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Identity, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// Lists are paginated in fixed-size pages.
const listPageSize = 15

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	authpw   *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, authService *authpw.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		authpw:   authService,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Authentication ──

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	errs := fieldErrors{}
	if strings.TrimSpace(email) == "" {
		errs.add("email", "The email field is required")
	} else if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		errs.add("email", "The email must be a valid email address")
	}
	if password == "" {
		errs.add("password", "The password field is required")
	} else if len(password) < 8 {
		errs.add("password", "The password must be at least 8 characters")
	}
	if strings.TrimSpace(displayName) == "" {
		errs.add("displayName", "The displayName field is required")
	}
	if err := errs.err(); err != nil {
		return Session{}, err
	}

	user, err := s.authpw.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.authpw.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued against the identity it resolved to.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	identity, err := s.sessions.Lookup(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Revoke(ctx, auth.HashToken(refreshToken)); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := randomToken()
	expiresAt := time.Now().Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:     user.ID,
		Name:    user.DisplayName,
		IsAdmin: user.IsAdmin,
		JTI:     jti,
		Exp:     expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	refreshToken := randomToken()
	refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refreshToken), session.Identity{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
	}, refreshExpiry); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		IsAdmin:      user.IsAdmin,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken verifies a Bearer token and rebuilds the session.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		IsAdmin:   claims.IsAdmin,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// ── Templates ──

func (s *Service) ListTemplates(_ context.Context) []templates.Template {
	return templates.ListActive()
}

func (s *Service) GetTemplate(_ context.Context, templateID string) (templates.Template, error) {
	tpl, ok := templates.ByID(templateID)
	if !ok {
		return templates.Template{}, notFound("Template")
	}
	return tpl, nil
}

func randomToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// pageOffset converts a 1-based page query into a row offset.
func pageOffset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * listPageSize
}
