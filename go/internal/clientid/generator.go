// Package clientid mints locally-unique identifiers for entities that do
// not have a database identity yet (rounds before their first save,
// categories and questions, which are never rows of their own).
//
// Ids are only unique per Generator instance and are never persisted or
// sent to the database; they exist so list rendering and in-memory lookups
// have stable keys.
package clientid

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"
)

// Generator produces process-lifetime-unique ids. Construct one per
// component that needs ids and pass it down explicitly; there is no
// package-level instance.
type Generator struct {
	counter atomic.Uint64
}

// NewGenerator returns a ready-to-use Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns a fresh id of the form "<prefix>_<millis>-<seq>-<rand>".
// The monotonic sequence number alone guarantees uniqueness within this
// generator; timestamp and random suffix keep ids from colliding across
// instances in practice.
func (g *Generator) Next(prefix string) string {
	seq := g.counter.Add(1)
	return fmt.Sprintf("%s_%d-%d-%s",
		prefix,
		time.Now().UnixMilli(),
		seq,
		strconv.FormatUint(rand.Uint64(), 36),
	)
}
