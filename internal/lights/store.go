package lights

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goveedeck/core/internal/infrastructure/database"
	"github.com/goveedeck/core/internal/transport"
)

// Store persists the device catalogue in SQLite. A device is keyed by
// (device_id, model); re-saving an existing device updates everything
// except first_seen.
type Store struct {
	db *database.DB
}

// NewStore creates a catalogue store over an open database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const upsertDeviceSQL = `
	INSERT INTO devices (
		device_id, model, name, controllable, retrievable,
		supported_commands, capabilities, first_seen, last_seen
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(device_id, model) DO UPDATE SET
		name = excluded.name,
		controllable = excluded.controllable,
		retrievable = excluded.retrievable,
		supported_commands = excluded.supported_commands,
		capabilities = excluded.capabilities,
		last_seen = excluded.last_seen`

// SaveAll upserts every light in one transaction. Devices already in
// the catalogue keep their original first_seen timestamp.
func (s *Store) SaveAll(ctx context.Context, lights []Light) error {
	if len(lights) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertDeviceSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lights {
		commands, err := json.Marshal(l.SupportedCommands)
		if err != nil {
			return fmt.Errorf("encoding commands for %s: %w", l.Key(), err)
		}

		var capabilities any
		if l.Capabilities != nil {
			encoded, err := json.Marshal(l.Capabilities)
			if err != nil {
				return fmt.Errorf("encoding capabilities for %s: %w", l.Key(), err)
			}
			capabilities = string(encoded)
		}

		if _, err := stmt.ExecContext(ctx,
			l.DeviceID,
			l.Model,
			l.Name,
			l.Controllable,
			l.Retrievable,
			string(commands),
			capabilities,
			l.FirstSeen.UTC().Format(time.RFC3339),
			l.LastSeen.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("upserting %s: %w", l.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalogue save: %w", err)
	}
	return nil
}

// LoadAll returns the full catalogue ordered by device key.
func (s *Store) LoadAll(ctx context.Context) ([]Light, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, model, name, controllable, retrievable,
		       supported_commands, capabilities, first_seen, last_seen
		FROM devices
		ORDER BY device_id, model`)
	if err != nil {
		return nil, fmt.Errorf("querying catalogue: %w", err)
	}
	defer rows.Close()

	var lights []Light
	for rows.Next() {
		var (
			l            Light
			commands     string
			capabilities sql.NullString
			firstSeen    string
			lastSeen     string
		)
		if err := rows.Scan(
			&l.DeviceID, &l.Model, &l.Name, &l.Controllable, &l.Retrievable,
			&commands, &capabilities, &firstSeen, &lastSeen,
		); err != nil {
			return nil, fmt.Errorf("scanning catalogue row: %w", err)
		}

		if err := json.Unmarshal([]byte(commands), &l.SupportedCommands); err != nil {
			return nil, fmt.Errorf("decoding commands for %s: %w", l.Key(), err)
		}
		if capabilities.Valid {
			var caps transport.Capabilities
			if err := json.Unmarshal([]byte(capabilities.String), &caps); err != nil {
				return nil, fmt.Errorf("decoding capabilities for %s: %w", l.Key(), err)
			}
			l.Capabilities = &caps
		}
		// Timestamps are written by us in RFC3339; parse failures leave
		// zero times rather than failing the whole load.
		l.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen) //nolint:errcheck // Format is controlled
		l.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)   //nolint:errcheck // Format is controlled

		lights = append(lights, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalogue: %w", err)
	}
	return lights, nil
}
