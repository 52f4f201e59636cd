package boltdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/sources"
	"github.com/locate918/roadmap/storage"
)

type LoggerFn func(string, ...interface{})

type repo struct {
	d    *bolt.DB
	root []byte
	path string
	log  LoggerFn
	err  LoggerFn
}

const (
	rootBucket = "locate918"

	// DefaultFile is the database file name under the storage path.
	DefaultFile = "roadmap.bdb"
)

var (
	planBucket    = []byte("plan")
	sourcesBucket = []byte("sources")
	probesBucket  = []byte("probes")
)

type Config struct {
	Path  string
	LogFn LoggerFn
	ErrFn LoggerFn
}

// New returns a bbolt backed repository for plan entries, the source
// catalog and probe history. The database is opened per operation so
// concurrent commands don't hold the file lock between calls.
func New(c Config) *repo {
	b := repo{
		root: []byte(rootBucket),
		path: c.Path,
		log:  func(string, ...interface{}) {},
		err:  func(string, ...interface{}) {},
	}
	if c.ErrFn != nil {
		b.err = c.ErrFn
	}
	if c.LogFn != nil {
		b.log = c.LogFn
	}

	return &b
}

func (r *repo) open() error {
	var err error
	r.d, err = bolt.Open(r.path, 0600, nil)
	if err != nil {
		return fmt.Errorf("could not open db %s: %w", r.path, err)
	}
	err = r.d.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(r.root)
		if err != nil {
			return fmt.Errorf("unable to create root bucket %s: %w", r.root, err)
		}
		if !root.Writable() {
			return fmt.Errorf("non writeable root bucket %s", r.root)
		}
		return nil
	})
	return err
}

func (r *repo) close() error {
	if r.d == nil {
		return nil
	}
	return r.d.Close()
}

var pathSeparator = []byte{'/'}

// dateBucketPath builds the bucket path family/leaf/yy/mm/dd.
func dateBucketPath(family, leaf []byte, date time.Time) []byte {
	pathEl := make([][]byte, 0, 5)

	pathEl = append(pathEl, family)
	pathEl = append(pathEl, leaf)
	pathEl = append(pathEl, []byte(date.Format("06")))
	pathEl = append(pathEl, []byte(date.Format("01")))
	pathEl = append(pathEl, []byte(date.Format("02")))

	return bytes.Join(pathEl, pathSeparator)
}

func getCursorPaths(c storage.DateCursor, family, leaf []byte) ([]byte, []byte) {
	return dateBucketPath(family, leaf, c.Min()), dateBucketPath(family, leaf, c.Max())
}

func splitPathHead(path []byte) ([]byte, []byte) {
	if len(path) == 0 {
		return nil, nil
	}
	pieces := bytes.SplitN(path, pathSeparator, 2)
	if len(pieces) == 1 {
		return pieces[0], nil
	}
	return pieces[0], pieces[1]
}

// loadRangeFromBucket walks b recursively, pruning one path component per
// level: the min constraint survives only down the min edge of the range
// and the max constraint only down the max edge, so interior buckets load
// whole.
func loadRangeFromBucket(b *bolt.Bucket, min, max []byte, each func(key, raw []byte)) {
	if b == nil {
		return
	}
	minHead, minRest := splitPathHead(min)
	maxHead, maxRest := splitPathHead(max)

	c := b.Cursor()
	first := func() ([]byte, []byte) { return c.First() }
	if minHead != nil {
		first = func() ([]byte, []byte) { return c.Seek(minHead) }
	}
	for key, raw := first(); key != nil; key, raw = c.Next() {
		if maxHead != nil && bytes.Compare(key, maxHead) > 0 {
			break
		}
		var cmin, cmax []byte
		if bytes.Equal(key, minHead) {
			cmin = minRest
		}
		if bytes.Equal(key, maxHead) {
			cmax = maxRest
		}
		if raw == nil {
			loadRangeFromBucket(b.Bucket(key), cmin, cmax, each)
		} else {
			each(key, raw)
		}
	}
}

// descendInBucket walks path inside root, creating the intermediate
// buckets when asked to, and returns the deepest bucket reached together
// with the unconsumed remainder of the path.
func descendInBucket(root *bolt.Bucket, path []byte, create bool) (*bolt.Bucket, []byte, error) {
	if root == nil {
		return nil, path, fmt.Errorf("trying to descend into nil bucket")
	}
	if len(path) == 0 {
		return root, path, nil
	}
	buckets := bytes.Split(path, pathSeparator)

	lvl := 0
	b := root
	for _, name := range buckets {
		lvl++
		if len(name) == 0 {
			continue
		}
		if b == nil {
			return root, path, fmt.Errorf("trying to load from nil bucket")
		}
		var cb *bolt.Bucket
		if create {
			cb, _ = b.CreateBucketIfNotExists(name)
		} else {
			cb = b.Bucket(name)
		}
		if cb == nil {
			lvl--
			break
		}
		b = cb
	}
	path = bytes.Join(buckets[lvl:], pathSeparator)

	return b, path, nil
}

// SaveEntries persists the given plan entries, skipping the ones whose
// stored copy already matches.
func (r *repo) SaveEntries(entries plan.Entries) error {
	var err error
	if err = r.open(); err != nil {
		return err
	}
	defer r.close()

	for _, e := range entries {
		if err := saveEntry(r, e); err != nil {
			r.err("error saving entry %s: %s", e.ID, err)
		}
	}
	return err
}

func (r *repo) SaveEntry(e plan.Entry) error {
	var err error
	if err = r.open(); err != nil {
		return err
	}
	defer r.close()

	return saveEntry(r, e)
}

func saveEntry(r *repo, e plan.Entry) error {
	path := dateBucketPath(planBucket, []byte(e.Scope), e.StartTime)

	return r.d.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(r.root)
		if root == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		if !root.Writable() {
			return fmt.Errorf("non writeable bucket %s", r.root)
		}
		b, rest, err := descendInBucket(root, path, true)
		if err != nil || len(rest) > 0 {
			return fmt.Errorf("unable to create %s in root bucket: %w", path, err)
		}
		if !b.Writable() {
			return fmt.Errorf("non writeable bucket %s", path)
		}
		key := []byte(e.ID)
		if raw := b.Get(key); raw != nil {
			old := plan.Entry{}
			if json.Unmarshal(raw, &old) == nil && old.Equals(e) {
				return nil
			}
		}
		entryBytes, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("could not marshal entry: %w", err)
		}
		if err = b.Put(key, entryBytes); err != nil {
			return fmt.Errorf("could not store encoded entry: %w", err)
		}
		r.log("saved %s/%s", e.Scope, e.ID)
		return nil
	})
}

// LoadEntries returns the stored entries of the given scopes whose start
// falls inside the cursor window, sorted by start time.
func (r *repo) LoadEntries(cursor storage.DateCursor, scopes ...string) (plan.Entries, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	defer r.close()

	entries := make(plan.Entries, 0)
	err := r.d.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(r.root)
		if rb == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		for _, scope := range scopes {
			min, max := getCursorPaths(cursor, planBucket, []byte(scope))
			loadRangeFromBucket(rb, min, max, func(key, raw []byte) {
				e := plan.Entry{}
				if err := json.Unmarshal(raw, &e); err != nil {
					r.err("unable to decode entry %s: %s", key, err)
					return
				}
				if e.IsValid() {
					entries = append(entries, e)
				}
			})
		}
		return nil
	})
	entries.Sort()
	return entries, err
}

// LoadEntry returns the stored entry with the given scope, start date and
// ID, or a zero entry when missing.
func (r *repo) LoadEntry(scope string, date time.Time, id string) plan.Entry {
	e := plan.Entry{}
	if err := r.open(); err != nil {
		r.err("error opening db: %s", err)
		return e
	}
	defer r.close()

	r.d.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(r.root)
		if rb == nil {
			return nil
		}
		b, rest, err := descendInBucket(rb, dateBucketPath(planBucket, []byte(scope), date), false)
		if err != nil || len(rest) > 0 {
			return nil
		}
		if raw := b.Get([]byte(id)); raw != nil {
			if err := json.Unmarshal(raw, &e); err != nil {
				r.err("unable to decode entry %s: %s", id, err)
			}
		}
		return nil
	})
	return e
}

// SaveSources persists the catalog, one bucket per kind, keyed by host.
func (r *repo) SaveSources(catalog sources.Catalog) error {
	var err error
	if err = r.open(); err != nil {
		return err
	}
	defer r.close()

	return r.d.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(r.root)
		if root == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		for _, src := range catalog {
			path := bytes.Join([][]byte{sourcesBucket, []byte(src.Kind)}, pathSeparator)
			b, rest, err := descendInBucket(root, path, true)
			if err != nil || len(rest) > 0 {
				return fmt.Errorf("unable to create %s in root bucket: %w", path, err)
			}
			raw, err := json.Marshal(src)
			if err != nil {
				return fmt.Errorf("could not marshal source %s: %w", src.Host(), err)
			}
			if err = b.Put([]byte(src.Host()), raw); err != nil {
				return fmt.Errorf("could not store encoded source %s: %w", src.Host(), err)
			}
		}
		return nil
	})
}

// LoadSources returns the stored catalog filtered to the given kinds, in
// kind then name order.
func (r *repo) LoadSources(kinds ...string) (sources.Catalog, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	defer r.close()

	if len(kinds) == 0 {
		kinds = sources.ValidKinds
	}
	catalog := make(sources.Catalog, 0)
	err := r.d.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(r.root)
		if rb == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		for _, kind := range kinds {
			path := bytes.Join([][]byte{sourcesBucket, []byte(kind)}, pathSeparator)
			b, rest, err := descendInBucket(rb, path, false)
			if err != nil || len(rest) > 0 {
				continue
			}
			b.ForEach(func(key, raw []byte) error {
				src := sources.Source{}
				if err := json.Unmarshal(raw, &src); err != nil {
					r.err("unable to decode source %s: %s", key, err)
					return nil
				}
				if src.IsValid() {
					catalog = append(catalog, src)
				}
				return nil
			})
		}
		return nil
	})
	catalog.Sort()
	return catalog, err
}

// SaveProbes appends probe results to the per host history.
func (r *repo) SaveProbes(probes ...sources.Probe) error {
	var err error
	if err = r.open(); err != nil {
		return err
	}
	defer r.close()

	return r.d.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(r.root)
		if root == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		for _, p := range probes {
			if p.Host == "" {
				continue
			}
			path := dateBucketPath(probesBucket, []byte(p.Host), p.CheckedAt)
			b, rest, err := descendInBucket(root, path, true)
			if err != nil || len(rest) > 0 {
				return fmt.Errorf("unable to create %s in root bucket: %w", path, err)
			}
			raw, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("could not marshal probe for %s: %w", p.Host, err)
			}
			key := []byte(p.CheckedAt.Format("150405"))
			if err = b.Put(key, raw); err != nil {
				return fmt.Errorf("could not store encoded probe for %s: %w", p.Host, err)
			}
		}
		return nil
	})
}

// LoadProbes returns the probe history of a host inside the cursor window,
// oldest first.
func (r *repo) LoadProbes(host string, cursor storage.DateCursor) ([]sources.Probe, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	defer r.close()

	probes := make([]sources.Probe, 0)
	err := r.d.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(r.root)
		if rb == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		min, max := getCursorPaths(cursor, probesBucket, []byte(host))
		loadRangeFromBucket(rb, min, max, func(key, raw []byte) {
			p := sources.Probe{}
			if err := json.Unmarshal(raw, &p); err != nil {
				r.err("unable to decode probe %s: %s", key, err)
				return
			}
			probes = append(probes, p)
		})
		return nil
	})
	sort.SliceStable(probes, func(i, j int) bool {
		return probes[i].CheckedAt.Before(probes[j].CheckedAt)
	})
	return probes, err
}
