// Package indexer maintains secondary indexes over executed ledger events so
// game servers can query bets and ticket seats by player, or replay the
// event log, without scanning full state.
package indexer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/storage"
)

const (
	prefixPlayerBets    = "idx:bets:"
	prefixPlayerTickets = "idx:tickets:"
	prefixPageSeats     = "idx:page:"
	prefixLog           = "idx:log:"
	keyLogSeq           = "idx:logseq"
)

// MaxEventsPage bounds a single Events read.
const MaxEventsPage = 500

// LoggedEvent is an event with its position in the log.
type LoggedEvent struct {
	Seq uint64 `json:"seq"`
	events.Event
}

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter

	mu  sync.Mutex
	seq uint64
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	if raw, err := db.Get([]byte(keyLogSeq)); err == nil && len(raw) == 8 {
		idx.seq = binary.BigEndian.Uint64(raw)
	}
	emitter.Subscribe(events.EventBetPlaced, idx.onBetPlaced)
	emitter.Subscribe(events.EventTraitTicketAdded, idx.onTicketAdded)
	emitter.Subscribe(events.EventTraitTicketCleared, idx.onTicketCleared)
	emitter.SubscribeAll(idx.onAny)
	return idx
}

// GetBetsByPlayer returns the bet ids a player has placed, oldest first.
func (idx *Indexer) GetBetsByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerBets + player)
}

// GetTicketsByPlayer returns the ticket page keys ("level:trait:page") on
// which a player currently holds a seat.
func (idx *Indexer) GetTicketsByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerTickets + player)
}

// Events returns up to limit logged events starting at sequence from.
func (idx *Indexer) Events(from uint64, limit int) ([]LoggedEvent, error) {
	if limit <= 0 || limit > MaxEventsPage {
		limit = MaxEventsPage
	}
	it := idx.db.NewIterator([]byte(prefixLog))
	defer it.Release()
	var out []LoggedEvent
	for it.Next() && len(out) < limit {
		var ev LoggedEvent
		if err := json.Unmarshal(it.Value(), &ev); err != nil {
			return nil, fmt.Errorf("indexer unmarshal event: %w", err)
		}
		if ev.Seq < from {
			continue
		}
		out = append(out, ev)
	}
	return out, it.Error()
}

// ---- event handlers ----

func (idx *Indexer) onBetPlaced(ev events.Event) {
	player, _ := ev.Data["player"].(string)
	betID, ok := ev.Data["bet_id"].(uint64)
	if player == "" || !ok {
		return
	}
	idx.warn(idx.addToList(prefixPlayerBets+player, fmt.Sprint(betID)), ev)
}

func pageKey(ev events.Event) (string, bool) {
	level, ok1 := ev.Data["level"].(uint32)
	trait, ok2 := ev.Data["trait_id"].(uint16)
	page, ok3 := ev.Data["page_index"].(uint16)
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}
	return core.TicketKey{Level: level, TraitID: trait, PageIndex: page}.String(), true
}

func (idx *Indexer) onTicketAdded(ev events.Event) {
	player, _ := ev.Data["player"].(string)
	key, ok := pageKey(ev)
	if player == "" || !ok {
		return
	}
	idx.warn(idx.addToList(prefixPageSeats+key, player), ev)
	idx.warn(idx.addUnique(prefixPlayerTickets+player, key), ev)
}

func (idx *Indexer) onTicketCleared(ev events.Event) {
	key, ok := pageKey(ev)
	if !ok {
		return
	}
	seats, err := idx.getList(prefixPageSeats + key)
	if err != nil {
		idx.warn(err, ev)
		return
	}
	for _, player := range seats {
		idx.warn(idx.removeFromList(prefixPlayerTickets+player, key), ev)
	}
	idx.warn(idx.db.Delete([]byte(prefixPageSeats+key)), ev)
}

func (idx *Indexer) onAny(ev events.Event) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	data, err := json.Marshal(LoggedEvent{Seq: idx.seq, Event: ev})
	if err != nil {
		idx.warn(err, ev)
		return
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], idx.seq+1)
	batch := idx.db.NewBatch()
	batch.Set([]byte(fmt.Sprintf("%s%020d", prefixLog, idx.seq)), data)
	batch.Set([]byte(keyLogSeq), seq[:])
	if err := batch.Write(); err != nil {
		idx.warn(err, ev)
		return
	}
	idx.seq++
}

func (idx *Indexer) warn(err error, ev events.Event) {
	if err != nil {
		slog.Warn("index update failed", "component", "indexer", "event", string(ev.Type), "tx", ev.TxID, "err", err)
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) putList(key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	return idx.putList(key, append(ids, value))
}

func (idx *Indexer) addUnique(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == value {
			return nil
		}
	}
	return idx.putList(key, append(ids, value))
}

func (idx *Indexer) removeFromList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != value {
			filtered = append(filtered, id)
		}
	}
	return idx.putList(key, filtered)
}
