// Package cache define la abstracción de almacenamiento volátil con TTL.
//
// Guarda el estado efímero del flujo de autorización: sesiones, códigos
// de autorización (hasheados), refresh tokens y flags de re-chequeo.
//
// Backends:
//   - memory (in-process, desarrollo/testing)
//   - redis (distribuido, producción)
package cache

import "time"

// Cache define las operaciones mínimas sobre el backend volátil.
type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
