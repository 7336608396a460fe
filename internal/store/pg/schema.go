package pg

// schema es idempotente: se aplica en cada arranque.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id             UUID PRIMARY KEY,
    email          TEXT NOT NULL UNIQUE,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    name           TEXT NOT NULL DEFAULT '',
    given_name     TEXT NOT NULL DEFAULT '',
    family_name    TEXT NOT NULL DEFAULT '',
    screen_name    TEXT NOT NULL DEFAULT '',
    phone_number   TEXT NOT NULL DEFAULT '',
    phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
    address        TEXT NOT NULL DEFAULT '',
    locale         TEXT NOT NULL DEFAULT '',
    password_hash  TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    disabled_at    TIMESTAMPTZ,
    disabled_until TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS clients (
    id            UUID PRIMARY KEY,
    client_id     TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    type          TEXT NOT NULL DEFAULT 'public',
    consent_type  TEXT NOT NULL DEFAULT 'explicit',
    redirect_uris TEXT[] NOT NULL DEFAULT '{}',
    scopes        TEXT[] NOT NULL DEFAULT '{}',
    secret_hash   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS scopes (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    claims       TEXT[] NOT NULL DEFAULT '{}',
    resources    TEXT[] NOT NULL DEFAULT '{}',
    system       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS authorizations (
    id         UUID PRIMARY KEY,
    subject    UUID NOT NULL,
    client_id  TEXT NOT NULL,
    type       TEXT NOT NULL,
    status     TEXT NOT NULL,
    scopes     TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    revoked_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_authorizations_lookup
    ON authorizations (subject, client_id, status, type);
`
