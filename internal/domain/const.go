package domain

import "context"

type ctxKey string

const (
	VersionCtxKey  ctxKey = "tx-version"
	LanguageCtxKey ctxKey = "tx-language"
)

const (
	VersionHeader  = "VersionHash"
	LanguageParam  = "language"
	DefaultVersion = Version("default")
	// DefaultLanguage is Norwegian bokmål, the taxonomy service's fallback language.
	DefaultLanguage = "nb"
)

// Version names a taxonomy working copy (draft or a published copy).
type Version string

func (v Version) String() string {
	return string(v)
}

func WithVersion(ctx context.Context, v Version) context.Context {
	return context.WithValue(ctx, VersionCtxKey, v)
}

// VersionFrom returns the request-scoped version, or DefaultVersion.
func VersionFrom(ctx context.Context) Version {
	if v, ok := ctx.Value(VersionCtxKey).(Version); ok && v != "" {
		return v
	}
	return DefaultVersion
}

func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, LanguageCtxKey, language)
}

func LanguageFrom(ctx context.Context) string {
	if l, ok := ctx.Value(LanguageCtxKey).(string); ok && l != "" {
		return l
	}
	return DefaultLanguage
}
