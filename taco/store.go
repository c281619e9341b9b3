package taco

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

var (
	recordPrefix = []byte("taco/")
	sequenceKey  = []byte("seq/taco")
)

type StoreConfig struct {
	// Directory holds the badger files. Empty keeps everything in memory.
	Directory string
	CacheTTL  time.Duration
	// Now stamps CreatedAt on save, time.Now when nil.
	Now func() time.Time
}

// Store is a badger backed Repository. Lookups by id go through a ttl cache.
type Store struct {
	logger reactive.Logger
	db     *badger.DB
	seq    *badger.Sequence
	cache  *ttlcache.Cache[int64, Taco]
	now    func() time.Time
}

var _ Repository = &Store{}

func Open(config StoreConfig) (*Store, error) {
	logger := reactive.NewLogger("taco")

	var opts badger.Options
	if config.Directory == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Join(config.Directory, "values")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating %s", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(badgerLogger{logger.WithField("store", "badger")}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening taco store")
	}
	seq, err := db.GetSequence(sequenceKey, 16)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "opening id sequence")
	}

	if config.CacheTTL <= 0 {
		config.CacheTTL = reactive.DefaultTacoCacheTTL
	}
	cache := ttlcache.New[int64, Taco](
		ttlcache.WithTTL[int64, Taco](config.CacheTTL),
		ttlcache.WithDisableTouchOnHit[int64, Taco](),
	)
	go cache.Start()

	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		logger: logger,
		db:     db,
		seq:    seq,
		cache:  cache,
		now:    now,
	}, nil
}

// OpenFromSettings opens the store configured under reactive.taco.*, with dir
// taking precedence when set.
func OpenFromSettings(dir string) (*Store, error) {
	conf := reactive.Settings()
	if dir == "" {
		dir = conf.GetStringDefault(reactive.KeyTacoDir, "")
	}
	return Open(StoreConfig{
		Directory: dir,
		CacheTTL:  conf.GetDurationDefault(reactive.KeyTacoCacheTTL, reactive.DefaultTacoCacheTTL),
	})
}

func (s *Store) Close() error {
	s.cache.Stop()
	var firstErr error
	if err := s.seq.Release(); err != nil {
		firstErr = errors.Wrap(err, "releasing id sequence")
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "closing taco store")
	}
	return firstErr
}

func recordKey(id int64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], uint64(id))
	return key
}

func (s *Store) FindAll(ctx context.Context, req PageRequest) (Page, error) {
	all := make([]Taco, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var t Taco
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return errors.Wrapf(err, "decoding %q", it.Item().Key())
			}
			all = append(all, t)
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}
	newestFirst(all)
	return paginate(all, req), nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (Taco, bool, error) {
	if item := s.cache.Get(id); item != nil {
		return item.Value(), true, nil
	}
	var t Taco
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Taco{}, false, nil
	}
	if err != nil {
		return Taco{}, false, errors.Wrapf(err, "finding taco %d", id)
	}
	s.cache.Set(id, t, ttlcache.DefaultTTL)
	return t, true, nil
}

// Save stores t. A zero ID gets the next id from the sequence and a zero
// CreatedAt is stamped with the current time.
func (s *Store) Save(ctx context.Context, t Taco) (Taco, error) {
	if err := ctx.Err(); err != nil {
		return Taco{}, err
	}
	if t.ID == 0 {
		next, err := s.seq.Next()
		if err != nil {
			return Taco{}, errors.Wrap(err, "allocating taco id")
		}
		t.ID = int64(next) + 1
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	val, err := json.Marshal(t)
	if err != nil {
		return Taco{}, errors.Wrap(err, "encoding taco")
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(t.ID), val)
	}); err != nil {
		return Taco{}, errors.Wrapf(err, "saving taco %d", t.ID)
	}
	s.cache.Delete(t.ID)
	s.logger.WithField("id", t.ID).Debug("taco saved")
	return t, nil
}

// badgerLogger routes badger's own logging through logrus.
type badgerLogger struct {
	log reactive.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
