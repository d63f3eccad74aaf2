package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

var tracer = otel.Tracer("middleware")

type VersionMiddleware struct {
	config domain.Config
}

func NewVersionMiddleware(config domain.Config) *VersionMiddleware {
	return &VersionMiddleware{
		config: config,
	}
}

// ScopeRequest copies the VersionHash header and the language parameter into the
// request context, falling back to the configured defaults.
func (m *VersionMiddleware) ScopeRequest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Version.Middleware.ScopeRequest")
		defer span.End()

		version := domain.Version(c.Request().Header.Get(domain.VersionHeader))
		if version == "" {
			version = m.config.DefaultVersion
		}
		language := c.QueryParam(domain.LanguageParam)
		if language == "" {
			language = m.config.DefaultLanguage
		}

		ctx = domain.WithVersion(ctx, version)
		ctx = domain.WithLanguage(ctx, language)
		span.SetAttributes(
			attribute.String("Version", domain.VersionFrom(ctx).String()),
			attribute.String("Language", domain.LanguageFrom(ctx)),
		)

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
