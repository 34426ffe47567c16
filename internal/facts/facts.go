// Package facts picks a curated fact about a Hijri month.
package facts

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Fallback is returned when a month has no facts.
const Fallback = "Welcome to the Hijri calendar!"

//go:embed facts.yaml
var defaultYAML []byte

// Table maps a month name to its ordered facts. It is read-only once built.
type Table map[string][]string

var (
	defaultOnce  sync.Once
	defaultTable Table
	defaultErr   error
)

// DefaultTable returns the embedded fact table, parsed once per process.
// The embedded document is part of the binary, so a parse failure is a
// build defect and panics.
func DefaultTable() Table {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(defaultYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("facts: embedded table: %v", defaultErr))
	}
	return defaultTable
}

// Parse decodes a YAML mapping of month name to list of facts.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, errors.New("fact table is empty")
	}
	return t, nil
}

// LoadTable reads a fact table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("facts: %s: %w", path, err)
	}
	return t, nil
}

// Source is the randomness used to pick a fact. Intn returns a value in
// [0, n). *rand.Rand satisfies it; tests substitute a fixed source.
type Source interface {
	Intn(n int) int
}

// lockedSource lets one *rand.Rand be shared by concurrent callers.
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// NewSource returns a time-seeded Source safe for concurrent use.
func NewSource() Source {
	return &lockedSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Selector picks facts from a Table using a Source.
type Selector struct {
	table Table
	src   Source
}

// NewSelector builds a Selector. A nil src gets NewSource().
func NewSelector(table Table, src Source) *Selector {
	if src == nil {
		src = NewSource()
	}
	return &Selector{table: table, src: src}
}

// Random returns one fact for month chosen uniformly, or Fallback when the
// month is unknown or has no facts.
func (s *Selector) Random(month string) string {
	list := s.table[month]
	if len(list) == 0 {
		return Fallback
	}
	i := s.src.Intn(len(list))
	if i < 0 || i >= len(list) {
		return list[0]
	}
	return list[i]
}

// Months returns how many facts each month has.
func (s *Selector) Months() map[string]int {
	out := make(map[string]int, len(s.table))
	for k, v := range s.table {
		out[k] = len(v)
	}
	return out
}
