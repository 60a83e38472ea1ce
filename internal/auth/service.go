package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/deskline/deskline-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAgentExists is returned when registering an existing username.
	ErrAgentExists = errors.New("agent already exists")
	// ErrInvalidUsername is returned when a username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when a password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides authentication operations. Agents register and log in
// with credentials; requesters receive short-lived guest tokens so the
// routing core only ever sees an opaque identity plus a role.
type Service struct {
	store     store.AgentStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(agentStore store.AgentStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     agentStore,
		jwtConfig: jwtConfig,
	}
}

// RegisterAgent creates a new agent with hashed password and returns an
// agent-role JWT token.
func (s *Service) RegisterAgent(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	existing, err := s.store.GetAgentByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrAgentExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	agent, err := s.store.CreateAgent(ctx, username, hashedPassword)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, agent.Username, RoleAgent, false)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// LoginAgent validates credentials and returns an agent-role JWT token.
func (s *Service) LoginAgent(ctx context.Context, username, password string) (string, error) {
	agent, err := s.store.GetAgentByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(agent.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, agent.Username, RoleAgent, false)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// GuestToken mints a requester-role token. The display name is optional;
// anonymous requesters get a generated guest identity.
func (s *Service) GuestToken(displayName string) (token, identity string, err error) {
	identity = strings.TrimSpace(displayName)
	if identity == "" {
		identity = "guest_" + uuid.New().String()[:8]
	}

	token, err = GenerateToken(s.jwtConfig, identity, RoleRequester, true)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	return token, identity, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
