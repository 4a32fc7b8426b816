package postgres

// Schema holds the DDL for the loyalty tables. Statements are idempotent so
// the setup command can re-run on deploy.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS balances (
		id            UUID PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		customer_id   TEXT NOT NULL,
		points        INTEGER NOT NULL CHECK (points >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (restaurant_id, customer_id)
	);`,

	`CREATE TABLE IF NOT EXISTS reward_items (
		id              UUID PRIMARY KEY,
		restaurant_id   TEXT NOT NULL,
		category        TEXT NOT NULL,
		description     TEXT NOT NULL,
		points_required INTEGER NOT NULL CHECK (points_required > 0),
		stock           INTEGER CHECK (stock IS NULL OR stock >= 0),
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE INDEX IF NOT EXISTS idx_reward_items_restaurant
		ON reward_items (restaurant_id) WHERE is_deleted = FALSE;`,

	`CREATE TABLE IF NOT EXISTS redemptions (
		id                   TEXT PRIMARY KEY,
		customer_id          TEXT NOT NULL,
		restaurant_id        TEXT NOT NULL,
		item_id              UUID NOT NULL,
		item_category        TEXT NOT NULL,
		item_description     TEXT NOT NULL,
		item_points_required INTEGER NOT NULL,
		status               TEXT NOT NULL,
		code                 TEXT,
		activated_at         TIMESTAMPTZ,
		used_at              TIMESTAMPTZ,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// One logical code namespace: among outstanding (activated) redemptions a
	// code can appear at most once. This backstops the generate-then-check
	// loop against concurrent activation races.
	`CREATE UNIQUE INDEX IF NOT EXISTS redemptions_live_code_key
		ON redemptions (code) WHERE status = 'activated';`,

	`CREATE INDEX IF NOT EXISTS idx_redemptions_customer
		ON redemptions (customer_id, created_at DESC);`,

	`CREATE INDEX IF NOT EXISTS idx_redemptions_stale
		ON redemptions (activated_at) WHERE status = 'activated';`,
}
