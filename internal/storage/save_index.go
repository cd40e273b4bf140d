package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSaves - в индексе нет записей о сохранениях мира
var ErrNoSaves = errors.New("сохранений нет")

// SaveRecord - запись журнала сохранений
type SaveRecord struct {
	ID       int64
	WorldID  string
	Tick     uint64
	Chunks   int
	Bytes    int
	Duration time.Duration
	SavedAt  time.Time
}

// SaveIndex - журнал сохранений мира в SQLite. Сами данные мира лежат в
// WorldStorage, индекс нужен для просмотра истории без открытия базы мира.
type SaveIndex struct {
	db *sql.DB
}

// OpenSaveIndex открывает (создаёт) индекс по пути path
func OpenSaveIndex(path string) (*SaveIndex, error) {
	if path == "" {
		return nil, errors.New("пустой путь индекса сохранений")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть индекс сохранений: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ошибка настройки индекса: %w", err)
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS saves_world_tick ON saves(world_id, tick);`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ошибка создания схемы индекса: %w", err)
	}

	return &SaveIndex{db: db}, nil
}

// Close закрывает индекс
func (s *SaveIndex) Close() error {
	return s.db.Close()
}

// Record добавляет запись о сохранении и возвращает её идентификатор
func (s *SaveIndex) Record(ctx context.Context, r SaveRecord) (int64, error) {
	if r.SavedAt.IsZero() {
		r.SavedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saves(world_id, tick, chunks, bytes, duration_ms, saved_at) VALUES(?, ?, ?, ?, ?, ?)`,
		r.WorldID, int64(r.Tick), r.Chunks, r.Bytes, r.Duration.Milliseconds(),
		r.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("ошибка записи в индекс сохранений: %w", err)
	}
	return res.LastInsertId()
}

// RecordResult записывает итог SaveWorld
func (s *SaveIndex) RecordResult(ctx context.Context, res *SaveResult) (int64, error) {
	return s.Record(ctx, SaveRecord{
		WorldID:  res.Meta.ID.String(),
		Tick:     res.Meta.GameTick,
		Chunks:   res.Meta.Chunks,
		Bytes:    res.Bytes,
		Duration: res.Duration,
		SavedAt:  res.Meta.SavedAt,
	})
}

// List возвращает последние limit сохранений, новые первыми.
// Пустой worldID - сохранения всех миров.
func (s *SaveIndex) List(ctx context.Context, worldID string, limit int) ([]SaveRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, world_id, tick, chunks, bytes, duration_ms, saved_at FROM saves
		 WHERE ? = '' OR world_id = ?
		 ORDER BY id DESC LIMIT ?`, worldID, worldID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса сохранений: %w", err)
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var (
			r          SaveRecord
			tick       int64
			durationMs int64
			savedAt    string
		)
		if err := rows.Scan(&r.ID, &r.WorldID, &tick, &r.Chunks, &r.Bytes, &durationMs, &savedAt); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("неверное время сохранения %q: %w", savedAt, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Latest возвращает последнее сохранение мира
func (s *SaveIndex) Latest(ctx context.Context, worldID string) (*SaveRecord, error) {
	list, err := s.List(ctx, worldID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoSaves
	}
	return &list[0], nil
}
