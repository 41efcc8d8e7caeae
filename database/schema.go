package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Relational schema for the durable store. Children cascade from sessions, so
// the administrative reset only ever deletes sessions.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    visitor_id TEXT NOT NULL,
    started_at TIMESTAMPTZ DEFAULT NOW(),
    ended_at TIMESTAMPTZ,
    device_type TEXT,
    user_agent TEXT,
    referrer TEXT,
    entry_slide TEXT,
    exit_slide TEXT,
    total_slides_viewed INTEGER DEFAULT 0,
    ip_address TEXT
);

CREATE TABLE IF NOT EXISTS page_views (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID REFERENCES sessions(id) ON DELETE CASCADE,
    slide_id TEXT NOT NULL,
    slide_type TEXT NOT NULL DEFAULT 'vertical',
    parent_slide_id TEXT,
    viewed_at TIMESTAMPTZ DEFAULT NOW(),
    duration_ms BIGINT,
    scroll_direction TEXT
);

CREATE TABLE IF NOT EXISTS click_events (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID REFERENCES sessions(id) ON DELETE CASCADE,
    slide_id TEXT NOT NULL,
    x_percent DOUBLE PRECISION NOT NULL,
    y_percent DOUBLE PRECISION NOT NULL,
    element_type TEXT,
    element_text TEXT,
    clicked_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cta_clicks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID REFERENCES sessions(id) ON DELETE CASCADE,
    slide_id TEXT NOT NULL,
    cta_text TEXT NOT NULL,
    cta_action TEXT NOT NULL,
    cta_href TEXT,
    clicked_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    hashed_password BYTEA NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_visitor_id ON sessions(visitor_id);
CREATE INDEX IF NOT EXISTS idx_page_views_slide_id ON page_views(slide_id);
CREATE INDEX IF NOT EXISTS idx_page_views_viewed_at ON page_views(viewed_at);
CREATE INDEX IF NOT EXISTS idx_page_views_session_id ON page_views(session_id);
CREATE INDEX IF NOT EXISTS idx_click_events_slide_id ON click_events(slide_id);
CREATE INDEX IF NOT EXISTS idx_click_events_clicked_at ON click_events(clicked_at);
CREATE INDEX IF NOT EXISTS idx_click_events_session_id ON click_events(session_id);
CREATE INDEX IF NOT EXISTS idx_cta_clicks_clicked_at ON cta_clicks(clicked_at);
CREATE INDEX IF NOT EXISTS idx_cta_clicks_session_id ON cta_clicks(session_id);
`

// ClickHouse DDL for the optional raw-event archive.
const archiveSchemaSQL = `
CREATE TABLE IF NOT EXISTS raw_events (
    event_id   String,
    event_type LowCardinality(String),
    visitor_id String,
    session_id String,
    slide_id   String,
    timestamp  DateTime64(3, 'UTC'),
    ip_address String,
    user_agent String,
    payload    String
) ENGINE = MergeTree()
ORDER BY (event_type, timestamp)
`

// EnsureSchema creates the relational tables and indexes if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// EnsureArchiveSchema creates the ClickHouse raw_events table if missing.
func EnsureArchiveSchema(ctx context.Context, ch *ClickHouseClient) error {
	if err := ch.Conn.Exec(ctx, archiveSchemaSQL); err != nil {
		return fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return nil
}
