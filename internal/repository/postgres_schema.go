package repository

// Schema lists the idempotent DDL for the PostgreSQL ledger, applied in order
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		id            UUID PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		date          DATE NOT NULL,
		slot_id       TEXT NOT NULL,
		time          TEXT NOT NULL,
		table_type    TEXT NOT NULL,
		party_size    INT NOT NULL CHECK (party_size >= 1),
		contact_email TEXT NOT NULL,
		user_id       TEXT,
		status        TEXT NOT NULL CHECK (status IN ('confirmed', 'cancelled')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		cancelled_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_slot
		ON reservations (restaurant_id, date, slot_id, table_type) WHERE status = 'confirmed'`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		seq           BIGSERIAL PRIMARY KEY,
		id            UUID NOT NULL UNIQUE,
		restaurant_id TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		user_name     TEXT NOT NULL,
		rating        SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment       TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_restaurant ON reviews (restaurant_id, seq)`,
}
