// api/store/postgres_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slidetrack/api/models"
)

// PostgresStore is the production EventStore. Session ids come from the
// database (gen_random_uuid); children reference sessions with ON DELETE
// CASCADE, so reset is a single DELETE on sessions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *models.Session) (string, error) {
	query := `
		INSERT INTO sessions (visitor_id, started_at, device_type, user_agent, referrer, entry_slide, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id string
	err := s.db.QueryRowContext(ctx, query,
		session.VisitorID,
		session.StartedAt,
		session.DeviceType,
		session.UserAgent,
		session.Referrer,
		session.EntrySlide,
		session.IPAddress,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time, exitSlide string, totalSlidesViewed int) error {
	query := `
		UPDATE sessions
		SET ended_at = $2, exit_slide = $3, total_slides_viewed = $4
		WHERE id = $1;
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, endedAt, exitSlide, totalSlidesViewed); err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) InsertPageView(ctx context.Context, pv *models.PageView) error {
	query := `
		INSERT INTO page_views (session_id, slide_id, slide_type, parent_slide_id, viewed_at, duration_ms, scroll_direction)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7);
	`
	_, err := s.db.ExecContext(ctx, query,
		pv.SessionID, pv.SlideID, pv.SlideType, pv.ParentSlideID, pv.ViewedAt, pv.DurationMs, pv.ScrollDirection)
	if err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertClickEvent(ctx context.Context, ce *models.ClickEvent) error {
	query := `
		INSERT INTO click_events (session_id, slide_id, x_percent, y_percent, element_type, element_text, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := s.db.ExecContext(ctx, query,
		ce.SessionID, ce.SlideID, ce.XPercent, ce.YPercent, ce.ElementType, ce.ElementText, ce.ClickedAt)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCTAClick(ctx context.Context, cc *models.CTAClick) error {
	query := `
		INSERT INTO cta_clicks (session_id, slide_id, cta_text, cta_action, cta_href, clicked_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6);
	`
	_, err := s.db.ExecContext(ctx, query,
		cc.SessionID, cc.SlideID, cc.CTAText, cc.CTAAction, cc.CTAHref, cc.ClickedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cta click: %w", err)
	}
	return nil
}

func (s *PostgresStore) SessionsBetween(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	query := `
		SELECT id, visitor_id, started_at, ended_at,
		       COALESCE(device_type, ''), COALESCE(user_agent, ''), COALESCE(referrer, ''),
		       COALESCE(entry_slide, ''), COALESCE(exit_slide, ''), COALESCE(total_slides_viewed, 0)
		FROM sessions
		WHERE started_at >= $1 AND started_at <= $2
		ORDER BY started_at ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.VisitorID, &sess.StartedAt, &endedAt,
			&sess.DeviceType, &sess.UserAgent, &sess.Referrer,
			&sess.EntrySlide, &sess.ExitSlide, &sess.TotalSlidesViewed); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			sess.EndedAt = &t
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while reading sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) PageViewsBetween(ctx context.Context, from, to time.Time) ([]models.PageView, error) {
	query := `
		SELECT id, session_id, slide_id, slide_type, COALESCE(parent_slide_id, ''),
		       viewed_at, COALESCE(duration_ms, 0), COALESCE(scroll_direction, '')
		FROM page_views
		WHERE viewed_at >= $1 AND viewed_at <= $2
		ORDER BY viewed_at ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query page views: %w", err)
	}
	defer rows.Close()

	var views []models.PageView
	for rows.Next() {
		var pv models.PageView
		if err := rows.Scan(&pv.ID, &pv.SessionID, &pv.SlideID, &pv.SlideType, &pv.ParentSlideID,
			&pv.ViewedAt, &pv.DurationMs, &pv.ScrollDirection); err != nil {
			return nil, fmt.Errorf("failed to scan page view row: %w", err)
		}
		views = append(views, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while reading page views: %w", err)
	}
	return views, nil
}

func (s *PostgresStore) ClickEventsBetween(ctx context.Context, from, to time.Time) ([]models.ClickEvent, error) {
	return s.queryClickEvents(ctx, `
		SELECT id, session_id, slide_id, x_percent, y_percent,
		       COALESCE(element_type, ''), COALESCE(element_text, ''), clicked_at
		FROM click_events
		WHERE clicked_at >= $1 AND clicked_at <= $2;
	`, from, to)
}

func (s *PostgresStore) ClickEventsForSlide(ctx context.Context, slideID string, from, to time.Time) ([]models.ClickEvent, error) {
	return s.queryClickEvents(ctx, `
		SELECT id, session_id, slide_id, x_percent, y_percent,
		       COALESCE(element_type, ''), COALESCE(element_text, ''), clicked_at
		FROM click_events
		WHERE clicked_at >= $1 AND clicked_at <= $2 AND slide_id = $3;
	`, from, to, slideID)
}

func (s *PostgresStore) queryClickEvents(ctx context.Context, query string, args ...interface{}) ([]models.ClickEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query click events: %w", err)
	}
	defer rows.Close()

	var clicks []models.ClickEvent
	for rows.Next() {
		var ce models.ClickEvent
		if err := rows.Scan(&ce.ID, &ce.SessionID, &ce.SlideID, &ce.XPercent, &ce.YPercent,
			&ce.ElementType, &ce.ElementText, &ce.ClickedAt); err != nil {
			return nil, fmt.Errorf("failed to scan click event row: %w", err)
		}
		clicks = append(clicks, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while reading click events: %w", err)
	}
	return clicks, nil
}

func (s *PostgresStore) CTAClicksBetween(ctx context.Context, from, to time.Time) ([]models.CTAClick, error) {
	query := `
		SELECT id, session_id, slide_id, cta_text, cta_action, COALESCE(cta_href, ''), clicked_at
		FROM cta_clicks
		WHERE clicked_at >= $1 AND clicked_at <= $2;
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query cta clicks: %w", err)
	}
	defer rows.Close()

	var clicks []models.CTAClick
	for rows.Next() {
		var cc models.CTAClick
		if err := rows.Scan(&cc.ID, &cc.SessionID, &cc.SlideID, &cc.CTAText, &cc.CTAAction,
			&cc.CTAHref, &cc.ClickedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cta click row: %w", err)
		}
		clicks = append(clicks, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while reading cta clicks: %w", err)
	}
	return clicks, nil
}

// DeleteAllSessions removes every session; children go with them via the
// ON DELETE CASCADE constraints.
func (s *PostgresStore) DeleteAllSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions;`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
