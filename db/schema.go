package db

const schema = `
CREATE TABLE IF NOT EXISTS currencies (
	code       VARCHAR(3) PRIMARY KEY,
	name       VARCHAR(64) NOT NULL,
	symbol     VARCHAR(8) NOT NULL DEFAULT '',
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	sort_order INT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS currencies_single_default ON currencies (is_default) WHERE is_default;

CREATE TABLE IF NOT EXISTS markup_rules (
	id              BIGSERIAL PRIMARY KEY,
	sport_type      VARCHAR(64) NOT NULL,
	tournament_id   VARCHAR(64),
	team_id         VARCHAR(64),
	event_id        VARCHAR(64),
	ticket_id       VARCHAR(64),
	level           VARCHAR(16) NOT NULL CHECK (level IN ('sport', 'tournament', 'team', 'event', 'ticket')),
	markup_type     VARCHAR(16) NOT NULL CHECK (markup_type IN ('fixed', 'percentage')),
	markup_amount   NUMERIC(12, 4) NOT NULL CHECK (markup_amount >= 0),
	sport_name      VARCHAR(255),
	tournament_name VARCHAR(255),
	team_name       VARCHAR(255),
	event_name      VARCHAR(255),
	ticket_name     VARCHAR(255),
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_by      INT,
	updated_by      INT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (markup_type <> 'percentage' OR markup_amount <= 100)
);

CREATE UNIQUE INDEX IF NOT EXISTS markup_rules_active_scope_key ON markup_rules (
	sport_type,
	COALESCE(tournament_id, ''),
	COALESCE(team_id, ''),
	COALESCE(event_id, ''),
	COALESCE(ticket_id, '')
) WHERE is_active;

CREATE INDEX IF NOT EXISTS markup_rules_probe_idx ON markup_rules (sport_type, level, event_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS hospitalities (
	id          BIGSERIAL PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	sort_order  INT NOT NULL DEFAULT 0,
	price_usd   NUMERIC(12, 2),
	icon_key    VARCHAR(512),
	created_by  INT,
	updated_by  INT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS hospitality_assignments (
	id             BIGSERIAL PRIMARY KEY,
	hospitality_id BIGINT NOT NULL REFERENCES hospitalities (id) ON DELETE RESTRICT,
	sport_type     VARCHAR(64) NOT NULL,
	tournament_id  VARCHAR(64),
	team_id        VARCHAR(64),
	event_id       VARCHAR(64),
	ticket_id      VARCHAR(64),
	level          VARCHAR(16) NOT NULL CHECK (level IN ('sport', 'tournament', 'team', 'event', 'ticket')),
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_by     INT,
	updated_by     INT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS hospitality_assignments_active_scope_key ON hospitality_assignments (
	hospitality_id,
	sport_type,
	COALESCE(tournament_id, ''),
	COALESCE(team_id, ''),
	COALESCE(event_id, ''),
	COALESCE(ticket_id, '')
) WHERE is_active;

CREATE INDEX IF NOT EXISTS hospitality_assignments_probe_idx ON hospitality_assignments (sport_type, level, event_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS ticket_markups (
	event_id          VARCHAR(64) NOT NULL,
	ticket_id         VARCHAR(64) NOT NULL,
	markup_type       VARCHAR(16) NOT NULL,
	markup_percentage NUMERIC(7, 4),
	base_price_usd    NUMERIC(12, 2) NOT NULL,
	final_price_usd   NUMERIC(12, 2) NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (event_id, ticket_id)
);

CREATE TABLE IF NOT EXISTS ticket_hospitalities (
	event_id       VARCHAR(64) NOT NULL,
	ticket_id      VARCHAR(64) NOT NULL,
	hospitality_id BIGINT NOT NULL REFERENCES hospitalities (id) ON DELETE CASCADE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (event_id, ticket_id, hospitality_id)
);
`
