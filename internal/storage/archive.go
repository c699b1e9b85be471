package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/voxel"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

var (
	// ErrNotFound уровень с таким идентификатором отсутствует в архиве
	ErrNotFound = errors.New("уровень не найден в архиве")
	// ErrArchiveClosed архив уже закрыт
	ErrArchiveClosed = errors.New("архив закрыт")
)

// Префиксы ключей BadgerDB
const (
	metaPrefix = "meta:"
	dataPrefix = "data:"
)

// ArchiveEntry метаданные сохранённого уровня
type ArchiveEntry struct {
	ID      uuid.UUID `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`  // Размер YAML до сжатия
	Bytes   int       `json:"bytes"` // Размер сжатых данных
}

// Archive хранилище целых уровней поверх BadgerDB
type Archive struct {
	db     *badger.DB
	dbPath string
	mutex  sync.RWMutex
	closed bool
}

// OpenArchive открывает архив в директории dir. Пустая строка открывает архив в памяти.
func OpenArchive(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &Archive{db: db, dbPath: dir}, nil
}

// Close закрывает архив
func (a *Archive) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.db.Close()
}

func (a *Archive) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.closed {
		return ErrArchiveClosed
	}
	return nil
}

// Put сохраняет закодированный уровень. Данные и метаданные пишутся
// в одной транзакции и заменяют предыдущую версию.
func (a *Archive) Put(ctx context.Context, id uuid.UUID, payload []byte) (ArchiveEntry, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if err := a.ready(ctx); err != nil {
		return ArchiveEntry{}, err
	}

	packed := compress(payload)
	entry := ArchiveEntry{
		ID:      id,
		SavedAt: time.Now().UTC(),
		Size:    len(payload),
		Bytes:   len(packed),
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return ArchiveEntry{}, fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+id.String()), packed); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+id.String()), meta)
	})
	if err != nil {
		return ArchiveEntry{}, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Debug("Уровень %s помещён в архив (%d → %d байт)", id, entry.Size, entry.Bytes)
	return entry, nil
}

// Get возвращает распакованные данные уровня
func (a *Archive) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	var packed []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + id.String()))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return decompress(packed)
}

// List возвращает метаданные всех уровней, от новых к старым
func (a *Archive) List(ctx context.Context) ([]ArchiveEntry, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	var entries []ArchiveEntry
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var e ArchiveEntry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("ошибка десериализации %s: %w", it.Item().Key(), err)
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].SavedAt.After(entries[j].SavedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

// Delete удаляет уровень из архива
func (a *Archive) Delete(ctx context.Context, id uuid.UUID) error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if err := a.ready(ctx); err != nil {
		return err
	}

	err := a.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(metaPrefix + id.String())); err != nil {
			return err
		}
		if err := txn.Delete([]byte(dataPrefix + id.String())); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + id.String()))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// ArchiveLevel кодирует уровень и помещает его в архив под его идентификатором
func ArchiveLevel[V voxel.Voxel[R], R voxel.Registry[R]](ctx context.Context, a *Archive, lvl *world.Level[V, R]) (ArchiveEntry, error) {
	data, err := EncodeLevel(lvl)
	if err != nil {
		return ArchiveEntry{}, err
	}
	return a.Put(ctx, lvl.ID(), data)
}

// RestoreLevel достаёт уровень из архива
func RestoreLevel[V voxel.Voxel[R], R voxel.Registry[R]](ctx context.Context, a *Archive, id uuid.UUID, registry R) (*world.Level[V, R], error) {
	data, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return DecodeLevel[V](data, registry)
}
