// Package gamesave implements the Game-Save Inspector (spec.md §4.3): it
// reads the game's SQLite-format save database read-only, resolving the
// map identity and listing recorded mod controllers.
//
// Grounded on db/atlasdb/db.go's sqlx.Connect + URL-encoded pragma pattern,
// adapted to a read-only mode pragma since the inspector never writes.
package gamesave

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
)

// minViableSize is the threshold below which a database is treated as
// having no controllers rather than as corrupt (spec.md §4.3 "A database
// shorter than a threshold byte length is treated as 'no controllers'").
const minViableSize = 512

// Inspector reads a single game-save database.
type Inspector struct {
	log  zerolog.Logger
	path string
}

// Open opens the save database at path read-only. A fatal open error (the
// file cannot be opened at all) is returned to the caller, per spec.md §4.3
// "a fatal open error is reported to the caller".
func Open(log zerolog.Logger, path string) (*Inspector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("gamesave: %w", err)
	}
	return &Inspector{log: log.With().Str("component", "gamesave").Str("path", path).Logger(), path: path}, nil
}

func (ins *Inspector) connect() (*sqlx.DB, error) {
	dsn := (&url.URL{
		Path: ins.path,
		RawQuery: (url.Values{
			"mode":          {"ro"},
			"_busy_timeout": {"6000"},
		}).Encode(),
	}).String()

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("gamesave: open: %w", err)
	}
	return db, nil
}

// Identify returns the save's resolved map reference and, if present, its
// last-played character (spec.md §4.3).
func (ins *Inspector) Identify() (model.MapRef, *model.LastCharacter, error) {
	stat, err := os.Stat(ins.path)
	if err != nil {
		return model.MapRef{}, nil, fmt.Errorf("gamesave: %w", err)
	}
	if stat.Size() < minViableSize {
		return model.UnknownMap(""), nil, nil
	}

	db, err := ins.connect()
	if err != nil {
		return model.MapRef{}, nil, err
	}
	defer db.Close()

	mapRef, err := ins.identifyMap(db)
	if err != nil {
		return model.MapRef{}, nil, err
	}

	lastChar, err := ins.lastCharacter(db)
	if err != nil {
		ins.log.Warn().Err(err).Msg("failed to read last character")
		lastChar = nil
	}

	return mapRef, lastChar, nil
}

func (ins *Inspector) identifyMap(db *sqlx.DB) (model.MapRef, error) {
	var worldKey string
	err := db.Get(&worldKey, `SELECT value FROM game_events WHERE id = 1 LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UnknownMap(""), nil
		}
		return model.MapRef{}, fmt.Errorf("gamesave: identify map: %w", err)
	}

	if m, ok := model.MapByDBFileName(worldKey); ok {
		return model.KnownMap(m.ID), nil
	}
	return model.UnknownMap(worldKey), nil
}

func (ins *Inspector) lastCharacter(db *sqlx.DB) (*model.LastCharacter, error) {
	var row struct {
		Name      string `db:"char_name"`
		Level     int    `db:"level"`
		Clan      string `db:"clan_name"`
		Timestamp int64  `db:"last_time"`
	}
	err := db.Get(&row, `
		SELECT char_name, level, clan_name, last_time
		FROM characters
		ORDER BY last_time DESC
		LIMIT 1
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &model.LastCharacter{
		Name:      row.Name,
		Level:     row.Level,
		Clan:      row.Clan,
		Timestamp: time.Unix(row.Timestamp, 0),
	}, nil
}

// ModControllers returns the asset-path tokens of every mod controller
// recorded in the save (spec.md §4.3, §4.10 "Mod controller"). Malformed
// rows are skipped with a warning rather than aborting the whole query
// (spec.md §4.3 "Error policy").
func (ins *Inspector) ModControllers() ([]string, error) {
	stat, err := os.Stat(ins.path)
	if err != nil {
		return nil, fmt.Errorf("gamesave: %w", err)
	}
	if stat.Size() < minViableSize {
		return nil, nil
	}

	db, err := ins.connect()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Queryx(`SELECT asset_path FROM mod_controllers`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		// Absence of the table itself is treated like "no controllers".
		return nil, nil
	}
	defer rows.Close()

	var controllers []string
	for rows.Next() {
		var path sql.NullString
		if err := rows.Scan(&path); err != nil {
			ins.log.Warn().Err(err).Msg("skipping malformed mod controller row")
			continue
		}
		if path.Valid && path.String != "" {
			controllers = append(controllers, path.String)
		}
	}
	return controllers, rows.Err()
}
