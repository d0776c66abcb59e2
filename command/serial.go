package command

// SerialGenerator hands out consecutive serial numbers for one named
// counter. Numbers start at zero unless repositioned with Set.
type SerialGenerator struct {
	next int
}

// NewSerialGenerator returns a generator whose first number is start.
func NewSerialGenerator(start int) *SerialGenerator {
	return &SerialGenerator{next: start}
}

// Next returns the current number and advances the generator.
func (g *SerialGenerator) Next() int {
	n := g.next
	g.next++
	return n
}

// Peek returns the number Next would return, without advancing.
func (g *SerialGenerator) Peek() int { return g.next }

// Set repositions the generator so that Next returns n.
func (g *SerialGenerator) Set(n int) { g.next = n }

// SerialSet holds the named serial counters of one document. Counters come
// into existence on first use, starting at zero.
type SerialSet struct {
	gens map[string]*SerialGenerator
}

// NewSerialSet returns an empty counter set.
func NewSerialSet() *SerialSet {
	return &SerialSet{gens: make(map[string]*SerialGenerator)}
}

// Generator returns the named counter, creating it if needed.
func (s *SerialSet) Generator(name string) *SerialGenerator {
	g, ok := s.gens[name]
	if !ok {
		g = NewSerialGenerator(0)
		s.gens[name] = g
	}
	return g
}

// serialTxn stages serial draws during one command expansion. Draws become
// visible to the underlying set only on commit, so a failed expansion never
// consumes numbers.
type serialTxn struct {
	set  *SerialSet
	next map[string]int
}

func newSerialTxn(set *SerialSet) *serialTxn {
	return &serialTxn{set: set, next: make(map[string]int)}
}

func (t *serialTxn) draw(name string) int {
	n, ok := t.next[name]
	if !ok {
		n = t.set.Generator(name).Peek()
	}
	t.next[name] = n + 1
	return n
}

func (t *serialTxn) commit() {
	for name, n := range t.next {
		t.set.Generator(name).Set(n)
	}
}
