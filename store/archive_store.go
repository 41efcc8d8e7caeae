// api/store/archive_store.go
package store

import (
	"context"
	"fmt"

	"slidetrack/api/database"
	"slidetrack/api/models"
)

// ArchiveStore appends every accepted track event to ClickHouse as a flat raw
// row for offline analysis. It sits outside the request's success path: the
// ingestion handler logs archive failures and still acknowledges the event.
type ArchiveStore struct {
	DB *database.ClickHouseClient
}

func NewArchiveStore(chClient *database.ClickHouseClient) *ArchiveStore {
	return &ArchiveStore{DB: chClient}
}

func (s *ArchiveStore) InsertEvents(ctx context.Context, events []models.ArchiveEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO raw_events (
			event_id, event_type, visitor_id, session_id, slide_id,
			timestamp, ip_address, user_agent, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive batch: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.EventType,
			event.VisitorID,
			event.SessionID,
			event.SlideID,
			event.Timestamp,
			event.IPAddress,
			event.UserAgent,
			event.Payload,
		)
		if err != nil {
			return fmt.Errorf("failed to append event %s to archive batch: %w", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send archive batch: %w", err)
	}
	return nil
}

// Truncate clears the archive. Called by the administrative reset so the
// archive does not outlive the relational data it mirrors.
func (s *ArchiveStore) Truncate(ctx context.Context) error {
	if err := s.DB.Conn.Exec(ctx, `TRUNCATE TABLE raw_events`); err != nil {
		return fmt.Errorf("failed to truncate raw_events: %w", err)
	}
	return nil
}
