// Package badgerstore implements model.Backend on an embedded badger
// key-value store. Values are msgpack encoded.
package badgerstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/go-oidfed/certledger/storage/model"
)

const (
	keyOwner          = "issuers/owner"
	keyDeployed       = "issuers/deployed"
	prefixIssuer      = "issuers/member/"
	prefixCertificate = "certs/"
	prefixActive      = "counters/active/"
	prefixSequence    = "counters/seq/"
)

// Config is the configuration of a badger Backend
type Config struct {
	// Path is the directory badger stores its files in
	Path string `yaml:"path"`
	// InMemory keeps all data in memory; Path is ignored
	InMemory bool `yaml:"in_memory"`
	// GCInterval is the interval of the value log garbage collection; 0
	// disables it
	GCInterval time.Duration `yaml:"-"`
}

// Backend is a model.Backend backed by badger
type Backend struct {
	db   *badger.DB
	stop chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Open opens (or creates) the badger database described by the Config
func Open(conf Config) (*Backend, error) {
	opts := badger.DefaultOptions(conf.Path).WithLogger(log.StandardLogger())
	if conf.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badgerstore: open failed")
	}
	b := &Backend{
		db:   db,
		stop: make(chan struct{}),
	}
	if conf.GCInterval > 0 && !conf.InMemory {
		go b.gc(conf.GCInterval)
	}
	return b, nil
}

func (b *Backend) gc(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			for b.db.RunValueLogGC(0.7) == nil {
			}
		}
	}
}

// Update implements the model.Backend interface
func (b *Backend) Update(fn func(state model.State) error) error {
	return b.db.Update(
		func(txn *badger.Txn) error {
			return fn(state{txn: txn})
		},
	)
}

// View implements the model.Backend interface
func (b *Backend) View(fn func(state model.State) error) error {
	return b.db.View(
		func(txn *badger.Txn) error {
			return fn(state{txn: txn})
		},
	)
}

// Close implements the model.Backend interface. Closing more than once
// returns the result of the first call.
func (b *Backend) Close() error {
	b.closeOnce.Do(
		func() {
			close(b.stop)
			b.closeErr = b.db.Close()
		},
	)
	return b.closeErr
}

type state struct {
	txn *badger.Txn
}

func (s state) Issuers() model.IssuerState           { return issuerState(s) }
func (s state) Certificates() model.CertificateState { return certificateState(s) }

func (s state) get(key string, target any) (bool, error) {
	item, err := s.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "badgerstore: get '%s' failed", key)
	}
	err = item.Value(
		func(val []byte) error {
			return msgpack.Unmarshal(val, target)
		},
	)
	return err == nil, errors.Wrapf(err, "badgerstore: decode '%s' failed", key)
}

func (s state) set(key string, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "badgerstore: encode '%s' failed", key)
	}
	return errors.Wrapf(s.txn.Set([]byte(key), data), "badgerstore: set '%s' failed", key)
}

func (s state) has(key string) (bool, error) {
	_, err := s.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "badgerstore: get '%s' failed", key)
}

func (s state) iterate(prefix string, do func(key string, val []byte) error) error {
	it := s.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	scanPrefix := []byte(prefix)
	for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
		item := it.Item()
		k := string(item.Key())
		err := item.Value(
			func(v []byte) error {
				return do(k, v)
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

type issuerState state

func (s issuerState) Deployed() (bool, error) {
	return state(s).has(keyDeployed)
}

func (s issuerState) MarkDeployed() error {
	return state(s).set(keyDeployed, true)
}

func (s issuerState) Owner() (model.Account, error) {
	var owner model.Account
	_, err := state(s).get(keyOwner, &owner)
	return owner, err
}

func (s issuerState) SetOwner(owner model.Account) error {
	return state(s).set(keyOwner, owner)
}

func (s issuerState) IsIssuer(account model.Account) (bool, error) {
	return state(s).has(prefixIssuer + account.Hex())
}

func (s issuerState) AddIssuer(account model.Account) error {
	return state(s).set(prefixIssuer+account.Hex(), time.Now().Unix())
}

func (s issuerState) RemoveIssuer(account model.Account) error {
	key := prefixIssuer + account.Hex()
	ok, err := state(s).has(key)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFoundErrorFmt("issuer %s not found", account.Hex())
	}
	return errors.Wrapf(s.txn.Delete([]byte(key)), "badgerstore: delete '%s' failed", key)
}

func (s issuerState) Issuers() ([]model.Account, error) {
	var out []model.Account
	err := state(s).iterate(
		prefixIssuer, func(key string, _ []byte) error {
			a, err := model.ParseAccount(strings.TrimPrefix(key, prefixIssuer))
			if err != nil {
				return err
			}
			out = append(out, a)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}

type certificateState state

func certificateKey(holder model.Account, id model.Identifier) string {
	return certificatePrefix(holder) + id.Hex()
}

func certificatePrefix(holder model.Account) string {
	return prefixCertificate + holder.Hex() + "/"
}

func (s certificateState) Certificate(holder model.Account, id model.Identifier) (*model.Certificate, error) {
	var c model.Certificate
	found, err := state(s).get(certificateKey(holder, id), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s certificateState) Insert(cert model.Certificate) error {
	key := certificateKey(cert.Holder, cert.ID)
	exists, err := state(s).has(key)
	if err != nil {
		return err
	}
	if exists {
		return model.CollisionErrorFmt("certificate %s already exists", cert.ID.Hex())
	}
	return state(s).set(key, cert)
}

func (s certificateState) MarkRevoked(holder model.Account, id model.Identifier) error {
	c, err := s.Certificate(holder, id)
	if err != nil {
		return err
	}
	if c == nil {
		return model.NotFoundErrorFmt("certificate %s not found", id.Hex())
	}
	c.Revoked = true
	return state(s).set(certificateKey(holder, id), c)
}

func (s certificateState) counter(key string) (uint64, error) {
	var n uint64
	_, err := state(s).get(key, &n)
	return n, err
}

func (s certificateState) ActiveCount(holder model.Account) (uint64, error) {
	return s.counter(prefixActive + holder.Hex())
}

func (s certificateState) SetActiveCount(holder model.Account, n uint64) error {
	return state(s).set(prefixActive+holder.Hex(), n)
}

func (s certificateState) Sequence(holder model.Account) (uint64, error) {
	return s.counter(prefixSequence + holder.Hex())
}

func (s certificateState) SetSequence(holder model.Account, seq uint64) error {
	return state(s).set(prefixSequence+holder.Hex(), seq)
}

func (s certificateState) Certificates(holder model.Account) ([]model.Certificate, error) {
	var out []model.Certificate
	err := state(s).iterate(
		certificatePrefix(holder), func(_ string, val []byte) error {
			var c model.Certificate
			if err := msgpack.Unmarshal(val, &c); err != nil {
				return err
			}
			out = append(out, c)
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "badgerstore: list certificates failed")
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Sequence < out[j].Sequence
		},
	)
	return out, nil
}

func (s certificateState) Holders() ([]model.Account, error) {
	var out []model.Account
	err := state(s).iterate(
		prefixSequence, func(key string, _ []byte) error {
			h, err := model.ParseAccount(strings.TrimPrefix(key, prefixSequence))
			if err != nil {
				return err
			}
			out = append(out, h)
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "badgerstore: list holders failed")
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}
