// Package repository define los tipos de dominio y las interfaces de
// persistencia del identity provider. Los adapters concretos viven en
// internal/store; el engine de autorización (internal/oidc) solo depende
// de estas interfaces.
package repository
