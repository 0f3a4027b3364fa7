package db

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/prometheus/client_golang/prometheus"
)

// PebbleDB persists records and change sets in a pebble LSM tree.
// Change set keys end in a big endian version so an iterator over the
// (logId, parentId) prefix yields them in ascending version order
// without any sorting.
type PebbleDB struct {
	dir string
	pdb *pebble.DB
	mu  sync.Mutex
}

type recordEnvelope struct {
	Id          string          `json:"id"`
	Version     *int            `json:"version,omitempty"`
	VersionDate *int64          `json:"versionDate,omitempty"`
	Doc         record.Document `json:"doc"`
}

type changeSetEnvelope struct {
	ParentId   string      `json:"parentId"`
	Version    int         `json:"version"`
	Operations patch.Patch `json:"operations"`
	Metadata   any         `json:"metadata"`
	CreatedAt  *int64      `json:"createdAt,omitempty"`
}

func recordKey(collection string, id string) []byte {
	return []byte("r\x00" + collection + "\x00" + id)
}

func recordPrefix(collection string) []byte {
	return []byte("r\x00" + collection + "\x00")
}

func changeSetKey(logId string, parentId string, version int) []byte {
	key := changeSetPrefix(logId, parentId)
	return binary.BigEndian.AppendUint64(key, uint64(version))
}

func changeSetPrefix(logId string, parentId string) []byte {
	return []byte("c\x00" + logId + "\x00" + parentId + "\x00")
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	upper[len(upper)-1]++
	return upper
}

// ============== RECORD METHODS ==============

func (p *PebbleDB) GetRecord(collection string, id string) (*record.Record, error) {
	value, closer, err := p.pdb.Get(recordKey(collection, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.New(RecordDoesNotExistError)
		}
		return nil, err
	}
	defer closer.Close()

	var envelope recordEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, err
	}
	return &record.Record{
		Id:          envelope.Id,
		Version:     envelope.Version,
		VersionDate: envelope.VersionDate,
		Doc:         envelope.Doc,
	}, nil
}

func (p *PebbleDB) SaveRecord(collection string, rec record.Record) error {
	encoded, err := json.Marshal(recordEnvelope{
		Id:          rec.Id,
		Version:     rec.Version,
		VersionDate: rec.VersionDate,
		Doc:         rec.Doc,
	})
	if err != nil {
		return err
	}
	return p.pdb.Set(recordKey(collection, rec.Id), encoded, pebble.Sync)
}

func (p *PebbleDB) RemoveRecord(collection string, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := recordKey(collection, id)
	_, closer, err := p.pdb.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errors.New(RecordDoesNotExistError)
		}
		return err
	}
	closer.Close()

	return p.pdb.Delete(key, pebble.Sync)
}

func (p *PebbleDB) GetRecordIds(collection string) ([]string, error) {
	prefix := recordPrefix(collection)
	iter, err := p.pdb.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var recordIds = make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		recordIds = append(recordIds, string(iter.Key()[len(prefix):]))
	}
	return recordIds, iter.Error()
}

// ============== CHANGE SET METHODS ==============

// AppendChangeSet does a locked check and set, pebble itself has no
// unique constraint to lean on.
func (p *PebbleDB) AppendChangeSet(logId string, cs record.ChangeSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := changeSetKey(logId, cs.ParentId, cs.Version)
	_, closer, err := p.pdb.Get(key)
	if err == nil {
		closer.Close()
		return errors.New(VersionAlreadyExistsError)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}

	encoded, err := json.Marshal(changeSetEnvelope{
		ParentId:   cs.ParentId,
		Version:    cs.Version,
		Operations: cs.Operations,
		Metadata:   cs.Metadata,
		CreatedAt:  cs.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.pdb.Set(key, encoded, pebble.Sync)
}

func (p *PebbleDB) GetChangeSets(logId string, parentId string, maxVersion *int) ([]record.ChangeSet, error) {
	prefix := changeSetPrefix(logId, parentId)

	upperBound := prefixUpperBound(prefix)
	if maxVersion != nil {
		upperBound = changeSetKey(logId, parentId, *maxVersion+1)
	}

	iter, err := p.pdb.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var changeSets = make([]record.ChangeSet, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		var envelope changeSetEnvelope
		if err := json.Unmarshal(iter.Value(), &envelope); err != nil {
			return nil, err
		}
		changeSets = append(changeSets, record.ChangeSet{
			ParentId:   envelope.ParentId,
			Version:    envelope.Version,
			Operations: envelope.Operations,
			Metadata:   envelope.Metadata,
			CreatedAt:  envelope.CreatedAt,
		})
	}
	return changeSets, iter.Error()
}

func (p *PebbleDB) CountChangeSets(logId string, parentId string) (int, error) {
	prefix := changeSetPrefix(logId, parentId)
	iter, err := p.pdb.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, iter.Error()
}

func (p *PebbleDB) RemoveChangeSet(logId string, parentId string, version int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := changeSetKey(logId, parentId, version)
	_, closer, err := p.pdb.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errors.New(ChangeSetDoesNotExistError)
		}
		return err
	}
	closer.Close()

	return p.pdb.Delete(key, pebble.Sync)
}

func (p *PebbleDB) Ping() error {
	if p.pdb == nil {
		return errors.New("pebble database is not open")
	}
	return nil
}

func (p *PebbleDB) Close() error {
	return p.pdb.Close()
}

// Collector exposes pebble engine internals to the metrics registry.
func (p *PebbleDB) Collector() prometheus.Collector {
	return NewPebbleCollector(p.pdb)
}

func NewPebbleDB(dir string) (*PebbleDB, error) {
	pdb, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleDB{
		dir: dir,
		pdb: pdb,
	}, nil
}

var _ DataStore = (*PebbleDB)(nil)
var _ MetricsProvider = (*PebbleDB)(nil)
