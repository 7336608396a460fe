package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── Campos HTTP ───

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ─── Campos de negocio (OIDC) ───

// Subject crea un campo para el subject del principal.
func Subject(v string) zap.Field { return zap.String("sub", v) }

// ClientID crea un campo para el ID del cliente OAuth.
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Scope crea un campo para un scope individual.
func Scope(v string) zap.Field { return zap.String("scope", v) }

// Scopes crea un campo para un set de scopes.
func Scopes(v []string) zap.Field { return zap.Strings("scopes", v) }

// GrantType crea un campo para el grant_type del token endpoint.
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }

// Claim crea un campo para un claim type.
func Claim(v string) zap.Field { return zap.String("claim", v) }

// Decision crea un campo para el resultado de una decisión de consent.
func Decision(v string) zap.Field { return zap.String("decision", v) }

// ─── Campos de sistema ───

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (controller, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// ─── Campos genéricos ───

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field { return zap.Int(key, v) }

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Any crea un campo para un valor arbitrario.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
