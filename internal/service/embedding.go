// embedding.go — URL встраивания артефактов и вход в Metabase через JWT SSO.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

// EmbedRequest — параметры static embedding.
type EmbedRequest struct {
	// Kind — question (card — синоним) или dashboard
	Kind string
	// ID — идентификатор артефакта
	ID        string
	Bordered  bool
	Titled    bool
	Downloads bool
}

// EmbeddingService выпускает токены и собирает URL для iframe и SSO.
type EmbeddingService struct {
	minter  tokenmint.Minter
	scopes  *ScopeResolver
	siteURL string
	logger  *slog.Logger
}

// NewEmbeddingService создаёт EmbeddingService.
func NewEmbeddingService(minter tokenmint.Minter, scopes *ScopeResolver, siteURL string, logger *slog.Logger) *EmbeddingService {
	return &EmbeddingService{
		minter:  minter,
		scopes:  scopes,
		siteURL: siteURL,
		logger:  logger.With(slog.String("component", "embedding_service")),
	}
}

// EmbedURL выпускает embed-токен и возвращает URL iframe.
// Ошибка выпуска — *tokenmint.MintingError.
func (s *EmbeddingService) EmbedURL(ctx context.Context, req EmbedRequest) (string, error) {
	kind := req.Kind
	if kind == modelCard {
		kind = string(model.KindQuestion)
	}
	if kind != string(model.KindQuestion) && kind != string(model.KindDashboard) {
		return "", fmt.Errorf("%w: неподдерживаемый тип артефакта %q", ErrValidation, req.Kind)
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return "", fmt.Errorf("%w: id артефакта обязателен", ErrValidation)
	}

	res, err := s.minter.MintEmbed(ctx, tokenmint.EmbedClaims{Kind: kind, ID: id})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Embed-токен выпущен",
		slog.String("kind", kind),
		slog.String("id", id),
		slog.String("strategy", string(res.Strategy)),
	)
	return tokenmint.EmbedURL(s.siteURL, kind, res.Token, req.Bordered, req.Titled, req.Downloads), nil
}

// SSOToken выпускает SSO-токен пользователя. Группы и platform UUID берутся из scope.
func (s *EmbeddingService) SSOToken(ctx context.Context, id model.Identity) (tokenmint.Result, error) {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		return tokenmint.Result{}, fmt.Errorf("%w: в токене пользователя нет email", ErrValidation)
	}

	scope, err := s.scopes.Resolve(ctx, id)
	if err != nil {
		return tokenmint.Result{}, err
	}

	claims := tokenmint.SSOClaims{
		Email:        email,
		Groups:       scope.GroupIDs,
		PlatformUUID: scope.PlatformUUID,
	}
	if first, last, ok := tokenmint.SplitFullName(id.FullName); ok {
		claims.FirstName = first
		claims.LastName = last
	}

	res, err := s.minter.MintSSO(ctx, claims)
	if err != nil {
		return tokenmint.Result{}, err
	}

	s.logger.Info("SSO-токен выпущен",
		slog.String("user_id", id.UserID),
		slog.Int("groups", len(scope.GroupIDs)),
		slog.String("strategy", string(res.Strategy)),
	)
	return res, nil
}

// SSORedirect возвращает URL входа в Metabase.
func (s *EmbeddingService) SSORedirect(ctx context.Context, id model.Identity, returnTo string) (string, error) {
	res, err := s.SSOToken(ctx, id)
	if err != nil {
		return "", err
	}
	return tokenmint.SSORedirectURL(s.siteURL, res.Token, returnTo), nil
}
