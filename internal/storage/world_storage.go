package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/annel0/factory-world/internal/logging"
	"github.com/annel0/factory-world/internal/vec"
	"github.com/annel0/factory-world/internal/world"
	"github.com/annel0/factory-world/internal/world/deferral"
	"github.com/annel0/factory-world/internal/world/proto"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrStorageClosed возвращается при обращении к закрытому хранилищу
	ErrStorageClosed = errors.New("хранилище закрыто")
	// ErrWorldNotFound - в хранилище нет сохранённого мира
	ErrWorldNotFound = errors.New("сохранённый мир не найден")
)

const (
	chunkKeyPrefix = "chunk:"
	metaKey        = "world:meta"
)

// WorldMeta - общие данные сохранения
type WorldMeta struct {
	ID       uuid.UUID         `json:"id"`
	GameTick uint64            `json:"game_tick"`
	Chunks   int               `json:"chunks"`
	SavedAt  time.Time         `json:"saved_at"`
	Deferral deferral.Snapshot `json:"deferral"`
}

// SaveResult - итог сохранения мира
type SaveResult struct {
	Meta     WorldMeta
	Bytes    int // объём сжатых данных чанков
	Removed  int // удалено записей чанков, которых больше нет в мире
	Duration time.Duration
}

// WorldStorage представляет собой хранилище данных мира
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// NewWorldStorage создает новое хранилище мира в dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Path возвращает путь к базе
func (ws *WorldStorage) Path() string {
	return ws.dbPath
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.decoder.Close()
	encErr := ws.encoder.Close()
	if err := ws.db.Close(); err != nil {
		return err
	}
	return encErr
}

func chunkKey(c vec.Vec2) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkKeyPrefix, c.X, c.Y))
}

func parseChunkKey(key []byte) (vec.Vec2, error) {
	var c vec.Vec2
	if _, err := fmt.Sscanf(string(key), chunkKeyPrefix+"%d:%d", &c.X, &c.Y); err != nil {
		return c, fmt.Errorf("неверный ключ чанка %q: %w", key, err)
	}
	return c, nil
}

// SaveWorld сохраняет все чанки, тик, идентификатор мира и отложенные вызовы.
// Записи чанков, удалённых из мира, стираются. Вызывающий гарантирует, что мир
// не изменяется во время сохранения.
func (ws *WorldStorage) SaveWorld(w *world.World) (*SaveResult, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrStorageClosed
	}

	start := time.Now()
	stale, err := ws.chunkCoordsLocked()
	if err != nil {
		return nil, err
	}

	wb := ws.db.NewWriteBatch()
	defer wb.Cancel()

	result := &SaveResult{}
	coords := w.ChunkCoords()
	for _, c := range coords {
		rec, err := encodeChunk(w, w.GetChunk(c))
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации чанка %v: %w", c, err)
		}

		compressed := ws.encoder.EncodeAll(data, nil)
		result.Bytes += len(compressed)
		if err := wb.Set(chunkKey(c), compressed); err != nil {
			return nil, fmt.Errorf("ошибка записи чанка %v: %w", c, err)
		}
		delete(stale, c)
	}

	for c := range stale {
		if err := wb.Delete(chunkKey(c)); err != nil {
			return nil, fmt.Errorf("ошибка удаления чанка %v: %w", c, err)
		}
		result.Removed++
	}

	result.Meta = WorldMeta{
		ID:       w.ID,
		GameTick: w.GameTick(),
		Chunks:   len(coords),
		SavedAt:  time.Now().UTC(),
		Deferral: w.DeferralTimer.Snapshot(),
	}
	meta, err := json.Marshal(result.Meta)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	if err := wb.Set([]byte(metaKey), meta); err != nil {
		return nil, fmt.Errorf("ошибка записи метаданных: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	result.Duration = time.Since(start)
	ws.logger.Debug("мир %s сохранён: тик %d, %d чанков, %d байт, %v",
		w.ID, result.Meta.GameTick, result.Meta.Chunks, result.Bytes, result.Duration)
	return result, nil
}

// LoadWorld заменяет содержимое w сохранённым миром. resolve сопоставляет
// ключи отложенных вызовов с обработчиками. После загрузки вызывающий
// восстанавливает связи логики.
func (ws *WorldStorage) LoadWorld(w *world.World, reg *proto.Registry, resolve func(key string) (deferral.Callback, bool)) (*WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrStorageClosed
	}

	meta, err := ws.readMetaLocked()
	if err != nil {
		return nil, err
	}

	w.Clear()
	w.ID = meta.ID
	w.SetGameTick(meta.GameTick)

	prefix := []byte(chunkKeyPrefix)
	err = ws.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			compressed, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			data, err := ws.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return fmt.Errorf("ошибка распаковки %s: %w", item.Key(), err)
			}

			var rec chunkRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", item.Key(), err)
			}
			if err := decodeChunk(w, reg, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.Clear()
		return nil, fmt.Errorf("ошибка загрузки мира: %w", err)
	}

	if err := w.DeferralTimer.Restore(meta.Deferral, resolve); err != nil {
		w.Clear()
		return nil, fmt.Errorf("ошибка восстановления таймера: %w", err)
	}

	ws.logger.Info("мир %s загружен: тик %d, %d чанков", meta.ID, meta.GameTick, w.ChunkCount())
	return meta, nil
}

// ReadMeta возвращает метаданные сохранения
func (ws *WorldStorage) ReadMeta() (*WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrStorageClosed
	}
	return ws.readMetaLocked()
}

func (ws *WorldStorage) readMetaLocked() (*WorldMeta, error) {
	var data []byte

	// Читаем данные из BadgerDB
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrWorldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	var meta WorldMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("ошибка десериализации метаданных: %w", err)
	}
	return &meta, nil
}

// ChunkCoords возвращает координаты сохранённых чанков
func (ws *WorldStorage) ChunkCoords() ([]vec.Vec2, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrStorageClosed
	}

	set, err := ws.chunkCoordsLocked()
	if err != nil {
		return nil, err
	}
	coords := make([]vec.Vec2, 0, len(set))
	for c := range set {
		coords = append(coords, c)
	}
	return coords, nil
}

func (ws *WorldStorage) chunkCoordsLocked() (map[vec.Vec2]struct{}, error) {
	coords := make(map[vec.Vec2]struct{})
	prefix := []byte(chunkKeyPrefix)

	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			c, err := parseChunkKey(it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			coords[c] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ключей чанков: %w", err)
	}
	return coords, nil
}
