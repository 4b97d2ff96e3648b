package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

// Each ledger owns a disjoint key partition.
var (
	prefixAccount = registerPrefix("acct:")
	prefixEconomy = registerPrefix("econ:")
	prefixGame    = registerPrefix("game:")
	prefixRewards = registerPrefix("rewards:")
)

var (
	keyEconomyState   = prefixEconomy + "state"
	keyGameState      = prefixGame + "state"
	keyMapMintQueue   = prefixGame + "mapq"
	keyRngRequest     = prefixGame + "rng"
	keyRewardsState   = prefixRewards + "state"
	keyTrophyVault    = prefixRewards + "vault"
	keyMapRewardQueue = prefixRewards + "mapq"
)

// BetKey is the state key of a bet record.
func BetKey(player string, betID uint64) string {
	return prefixEconomy + "bet:" + player + ":" + strconv.FormatUint(betID, 10)
}

// TicketPageKey is the state key of a trait ticket page.
func TicketPageKey(k core.TicketKey) string {
	return prefixRewards + "ticket:" + k.String()
}

func affiliateKey(codeSeed string) string { return prefixEconomy + "aff:" + codeSeed }
func stakeKey(player string) string       { return prefixEconomy + "stake:" + player }
func playerKey(owner string) string       { return prefixGame + "player:" + owner }

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

// ---- typed helpers ----

// load decodes the record at key into out. Missing keys surface as
// core.ErrNotFound.
func (s *StateDB) load(key string, out any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StateDB) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.set(key, data)
	return nil
}

// loadOrInit decodes key into out, leaving the caller's zero record in
// place when the key does not exist yet.
func (s *StateDB) loadOrInit(key string, out any) error {
	err := s.load(key, out)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	return err
}

// ---- Account ----

func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	acc := &core.Account{Address: address} // zero-value account
	if err := s.loadOrInit(prefixAccount+address, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.store(prefixAccount+acc.Address, acc)
}

// ---- EconomyLedger ----

func (s *StateDB) GetEconomyState() (*core.EconomyState, error) {
	var st core.EconomyState
	if err := s.load(keyEconomyState, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StateDB) SetEconomyState(st *core.EconomyState) error {
	return s.store(keyEconomyState, st)
}

func (s *StateDB) GetBet(player string, betID uint64) (*core.BetRecord, error) {
	var b core.BetRecord
	if err := s.load(BetKey(player, betID), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *StateDB) SetBet(b *core.BetRecord) error {
	return s.store(BetKey(b.Player, b.BetID), b)
}

func (s *StateDB) GetAffiliate(codeSeed string) (*core.AffiliateAccrual, error) {
	var a core.AffiliateAccrual
	if err := s.load(affiliateKey(codeSeed), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *StateDB) SetAffiliate(a *core.AffiliateAccrual) error {
	return s.store(affiliateKey(a.CodeSeed), a)
}

func (s *StateDB) GetStake(player string) (*core.StakeAllocation, error) {
	st := &core.StakeAllocation{Owner: player}
	if err := s.loadOrInit(stakeKey(player), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *StateDB) SetStake(st *core.StakeAllocation) error {
	return s.store(stakeKey(st.Owner), st)
}

// ---- GameLedger ----

func (s *StateDB) GetGameState() (*core.GameState, error) {
	var st core.GameState
	if err := s.load(keyGameState, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StateDB) SetGameState(st *core.GameState) error {
	return s.store(keyGameState, st)
}

func (s *StateDB) GetMapMintQueue() (*core.MapMintQueue, error) {
	var q core.MapMintQueue
	if err := s.load(keyMapMintQueue, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *StateDB) SetMapMintQueue(q *core.MapMintQueue) error {
	return s.store(keyMapMintQueue, q)
}

func (s *StateDB) GetRngRequest() (*core.RngRequest, error) {
	var r core.RngRequest
	if err := s.load(keyRngRequest, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *StateDB) SetRngRequest(r *core.RngRequest) error {
	return s.store(keyRngRequest, r)
}

func (s *StateDB) GetPlayer(owner string) (*core.PlayerState, error) {
	p := &core.PlayerState{Owner: owner}
	if err := s.loadOrInit(playerKey(owner), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *StateDB) SetPlayer(p *core.PlayerState) error {
	return s.store(playerKey(p.Owner), p)
}

// ---- RewardsLedger ----

func (s *StateDB) GetRewardsState() (*core.RewardsState, error) {
	var st core.RewardsState
	if err := s.load(keyRewardsState, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StateDB) SetRewardsState(st *core.RewardsState) error {
	return s.store(keyRewardsState, st)
}

func (s *StateDB) GetTrophyVault() (*core.TrophyVault, error) {
	var v core.TrophyVault
	if err := s.load(keyTrophyVault, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *StateDB) SetTrophyVault(v *core.TrophyVault) error {
	return s.store(keyTrophyVault, v)
}

func (s *StateDB) GetMapRewardQueue() (*core.MapRewardQueue, error) {
	var q core.MapRewardQueue
	if err := s.load(keyMapRewardQueue, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *StateDB) SetMapRewardQueue(q *core.MapRewardQueue) error {
	return s.store(keyMapRewardQueue, q)
}

func (s *StateDB) GetTicketPage(k core.TicketKey) (*core.TicketPage, error) {
	var p core.TicketPage
	if err := s.load(TicketPageKey(k), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetTicketPage stores p under the key it was addressed by. Callers must
// have bound the header with EnsureHeader first.
func (s *StateDB) SetTicketPage(p *core.TicketPage) error {
	return s.store(TicketPageKey(p.Key()), p)
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so that subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete world state.
// It merges all persisted state entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding.  It does NOT flush or modify state,
// so it is safe to call before signing a block.
func (s *StateDB) ComputeRoot() string {
	// Step 1: collect all persisted state entries from DB.
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}

	// Step 2: apply in-memory write buffer (uncommitted changes this block).
	for k, v := range s.dirty {
		merged[k] = v
	}

	// Step 3: exclude deleted keys.
	for k := range s.deleted {
		delete(merged, k)
	}

	// Step 4: sort keys for determinism.
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Step 5: length-prefix encode each key-value pair and hash.
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// WriteBatch and then clears it. Call ComputeRoot() before signing the block,
// then call Commit() after the block is safely stored.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}
