package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/ports"
)

const bearerPrefix = "Bearer "

var errMissingToken = errors.New("missing bearer token")

type PasetoAuthMiddleware struct {
	config     config.AuthConfig
	logger     infrastructure.Logger
	keyService ports.KeyService
}

func NewPasetoAuthMiddleware(cfg config.AuthConfig, logger infrastructure.Logger, keyService ports.KeyService) *PasetoAuthMiddleware {
	return &PasetoAuthMiddleware{
		config:     cfg,
		logger:     logger.WithComponent("auth"),
		keyService: keyService,
	}
}

func (m *PasetoAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Enabled || slices.Contains(m.config.SkipPaths, r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		subject, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn().
				Err(err).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request rejected")

			writeDomainError(w, domain.NewUnauthorizedError("Invalid or missing access token"))

			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *PasetoAuthMiddleware) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errMissingToken
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return "", errMissingToken
	}

	key, err := m.keyService.GetPublicKey(r.Context())
	if err != nil {
		return "", fmt.Errorf("failed to get public key: %w", err)
	}

	parser := paseto.NewParser()
	parser.AddRule(issuedByAnyOf(m.config.ValidIssuers))

	token, err := parser.ParseV4Public(key, raw, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	subject, err := token.GetSubject()
	if err != nil {
		// Tokens without a subject are still valid service tokens.
		return "", nil
	}

	return subject, nil
}

func issuedByAnyOf(issuers []string) paseto.Rule[paseto.Token] {
	return func(token paseto.Token) error {
		if len(issuers) == 0 {
			return nil
		}

		issuer, err := token.GetIssuer()
		if err != nil {
			return err
		}

		if !slices.Contains(issuers, issuer) {
			return fmt.Errorf("issuer %q is not trusted", issuer)
		}

		return nil
	}
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)

	return subject, ok
}
