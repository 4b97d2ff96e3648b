// Package entropy turns the revealed RNG word into independent, reproducible
// draws. Each draw is blake3 over a domain label, the word and the draw's
// counters, so two draws never share entropy unless every input matches.
package entropy

import (
	"bytes"
	"encoding/binary"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"
)

// Draw domains.
const (
	DomainDailyTrait = "purge/daily/trait"
	DomainDailySeat  = "purge/daily/seat"
)

// Derive returns the seed for one draw.
func Derive(word [32]byte, domain string, counters ...uint64) [32]byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(domain)+32+8*len(counters)))
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(domain)))
	buf.Write(n[:])
	buf.WriteString(domain)
	buf.Write(word[:])
	var c [8]byte
	for _, v := range counters {
		binary.BigEndian.PutUint64(c[:], v)
		buf.Write(c[:])
	}
	return blake3.Sum256(buf.Bytes())
}

// Index reduces seed to [0, n), reading the seed as a big-endian 256-bit
// integer. n == 0 yields 0.
func Index(seed [32]byte, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := new(uint256.Int).SetBytes32(seed[:])
	return x.Mod(x, uint256.NewInt(n)).Uint64()
}

// Pick is Index(Derive(word, domain, counters...), n).
func Pick(word [32]byte, n uint64, domain string, counters ...uint64) uint64 {
	return Index(Derive(word, domain, counters...), n)
}
