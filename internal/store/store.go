// Package store provides a persistent VCF record index backed by BadgerDB.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/index"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

// Key prefixes.
const (
	locusPrefix = "loc:"
	idPrefix    = "id:"
	headerKey   = "meta:header"
)

// Store is a record sink that persists records keyed by locus, with a
// secondary ID key pointing at the locus key.
type Store struct {
	db          *badger.DB
	logger      *zap.Logger
	idPolicy    index.DuplicatePolicy
	locusPolicy index.DuplicatePolicy
	wroteHeader bool
}

// header is the part of the metadata needed to interpret stored samples.
type header struct {
	FileFormat string   `json:"fileformat"`
	Samples    []string `json:"samples,omitempty"`
}

// record is the JSON form of a data line.
type record struct {
	Chrom   string     `json:"chrom"`
	Pos     int64      `json:"pos"`
	IDs     []string   `json:"ids,omitempty"`
	Ref     string     `json:"ref"`
	Alt     []string   `json:"alt,omitempty"`
	Qual    string     `json:"qual,omitempty"` // QUAL column text
	Filters []string   `json:"filters,omitempty"`
	Info    string     `json:"info"`
	Format  []string   `json:"format,omitempty"`
	Samples [][]string `json:"samples,omitempty"`
}

// Open opens or creates a store at path. An empty path opens an in-memory
// store.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store %q: %w", path, err)
	}
	return &Store{
		db:          db,
		logger:      zap.NewNop(),
		idPolicy:    index.Fail,
		locusPolicy: index.Fail,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLogger sets the logger used for duplicate reports.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetDuplicatePolicies sets how repeated IDs and loci are handled. When
// KeepLast replaces a locus, IDs found only on the replaced record no longer
// resolve.
func (s *Store) SetDuplicatePolicies(idPolicy, locusPolicy index.DuplicatePolicy) {
	s.idPolicy = idPolicy
	s.locusPolicy = locusPolicy
}

// Accept persists one record in a single transaction.
func (s *Store) Accept(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	data, err := json.Marshal(toRecord(v, samples))
	if err != nil {
		return fmt.Errorf("encode record %s:%d: %w", v.Chrom, v.Pos, err)
	}
	lk := locusKey(v.Chrom, v.Pos)

	err = s.db.Update(func(txn *badger.Txn) error {
		if !s.wroteHeader {
			h, err := json.Marshal(header{FileFormat: md.FileFormat(), Samples: md.SampleNames()})
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(headerKey), h); err != nil {
				return err
			}
		}

		haveLocus, err := exists(txn, lk)
		if err != nil {
			return err
		}
		if haveLocus && s.locusPolicy == index.Fail {
			return fmt.Errorf("%w for position %s:%d", index.ErrDuplicate, v.Chrom, v.Pos)
		}

		var newIDs []string
		for _, id := range v.IDs {
			haveID, err := exists(txn, idKey(id))
			if err != nil {
				return err
			}
			if haveID && s.idPolicy == index.Fail {
				return fmt.Errorf("%w for ID %s", index.ErrDuplicate, id)
			}
			if !haveID || s.idPolicy == index.KeepLast {
				newIDs = append(newIDs, id)
			} else {
				s.logger.Debug("keeping first record for duplicate ID", zap.String("id", id))
			}
		}

		if haveLocus && s.locusPolicy == index.KeepLast {
			if err := dropReplacedIDs(txn, lk, v.IDs); err != nil {
				return err
			}
		}
		if !haveLocus || s.locusPolicy == index.KeepLast {
			if err := txn.Set(lk, data); err != nil {
				return err
			}
		}
		for _, id := range newIDs {
			if err := txn.Set(idKey(id), lk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.wroteHeader = true
	return nil
}

// SampleNames returns the sample names stored with the first record.
func (s *Store) SampleNames() ([]string, error) {
	var h header
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(headerKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &h)
		})
	})
	return h.Samples, err
}

// AtLocus returns the record at chrom:pos.
func (s *Store) AtLocus(chrom string, pos int64) (*index.Record, bool, error) {
	var rec *index.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, locusKey(chrom, pos))
		return err
	})
	return rec, rec != nil, err
}

// ByID returns the record with the given ID.
func (s *Store) ByID(id string) (*index.Record, bool, error) {
	var rec *index.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		lk, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = getRecord(txn, lk)
		return err
	})
	return rec, rec != nil, err
}

// Range calls fn for every record on chrom with start <= pos <= end, in
// position order.
func (s *Store) Range(chrom string, start, end int64, fn func(*index.Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := chromPrefix(chrom)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		stop := locusKey(chrom, end)
		for it.Seek(locusKey(chrom, start)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key(), stop) > 0 {
				break
			}
			rec, err := decodeItem(item)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored loci.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(locusPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// GenotypeAtLocus resolves the GT of the named sample at chrom:pos.
func (s *Store) GenotypeAtLocus(chrom string, pos int64, sample string) (vcf.Genotype, bool, error) {
	rec, ok, err := s.AtLocus(chrom, pos)
	if err != nil || !ok {
		return vcf.Genotype{}, false, err
	}
	names, err := s.SampleNames()
	if err != nil {
		return vcf.Genotype{}, false, err
	}
	for i, name := range names {
		if name == sample {
			smp := rec.Sample(i)
			if smp == nil {
				return vcf.Genotype{}, false, nil
			}
			return vcf.GenotypeOf(rec.Variant, smp)
		}
	}
	return vcf.Genotype{}, false, nil
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// dropReplacedIDs deletes the ID keys of the record stored at lk that still
// point there and that the replacing record does not carry.
func dropReplacedIDs(txn *badger.Txn, lk []byte, keep []string) error {
	old, err := getRecord(txn, lk)
	if err != nil || old == nil {
		return err
	}
	for _, id := range old.Variant.IDs {
		if slices.Contains(keep, id) {
			continue
		}
		item, err := txn.Get(idKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		target, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if bytes.Equal(target, lk) {
			if err := txn.Delete(idKey(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

func getRecord(txn *badger.Txn, key []byte) (*index.Record, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(item)
}

func decodeItem(item *badger.Item) (*index.Record, error) {
	var r record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", item.Key(), err)
	}
	return r.toIndexRecord()
}

// locusKey orders records by chromosome, then numerically by position.
func locusKey(chrom string, pos int64) []byte {
	key := chromPrefix(chrom)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(pos)^(1<<63))
	return append(key, b[:]...)
}

func chromPrefix(chrom string) []byte {
	return []byte(locusPrefix + chrom + "\x00")
}

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}

func toRecord(v *vcf.Variant, samples []*vcf.Sample) record {
	r := record{
		Chrom:   v.Chrom,
		Pos:     v.Pos,
		IDs:     v.IDs,
		Ref:     v.Ref,
		Alt:     v.Alt,
		Filters: v.Filters,
		Info:    v.Info.String(),
		Format:  v.Format,
	}
	for _, s := range samples {
		values := make([]string, len(v.Format))
		for i, key := range v.Format {
			values[i], _ = s.Get(key)
		}
		r.Samples = append(r.Samples, values)
	}
	if v.Qual != nil {
		r.Qual = v.QualString()
	}
	return r
}

func (r record) toIndexRecord() (*index.Record, error) {
	info, err := vcf.ParseInfo(r.Info)
	if err != nil {
		return nil, err
	}
	v := &vcf.Variant{
		Chrom:   r.Chrom,
		Pos:     r.Pos,
		IDs:     r.IDs,
		Ref:     r.Ref,
		Alt:     r.Alt,
		Filters: r.Filters,
		Info:    info,
		Format:  r.Format,
	}
	if r.Qual != "" {
		if err := v.SetQualText(r.Qual); err != nil {
			return nil, err
		}
	}
	rec := &index.Record{Variant: v}
	for _, values := range r.Samples {
		s, err := vcf.NewSample(r.Format, values)
		if err != nil {
			return nil, err
		}
		rec.Samples = append(rec.Samples, s)
	}
	return rec, nil
}
