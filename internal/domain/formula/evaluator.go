package formula

// Binding supplies concrete values for the references a formula may use.
// Id-form references ({field_id}, {mapped.key}) resolve through the id map,
// label-form references ([Field Label], [Source.Field Label]) through the
// label map. The same value registered under both maps makes the two
// syntaxes interchangeable.
type Binding struct {
	byID    map[string]float64
	byLabel map[string]float64
}

// NewBinding creates an empty binding
func NewBinding() *Binding {
	return &Binding{
		byID:    make(map[string]float64),
		byLabel: make(map[string]float64),
	}
}

// SetField registers a value under a field id
func (b *Binding) SetField(id string, value float64) *Binding {
	b.byID[id] = value
	return b
}

// SetLabel registers a value under a field label
func (b *Binding) SetLabel(label string, value float64) *Binding {
	b.byLabel[label] = value
	return b
}

// SetMapped registers a cross-entity value under its dotted key, so it is
// reachable as {source.key}
func (b *Binding) SetMapped(source, key string, value float64) *Binding {
	b.byID[source+"."+key] = value
	return b
}

// SetMappedLabel registers a cross-entity value under its dotted label, so
// it is reachable as [Source.Field Label]
func (b *Binding) SetMappedLabel(source, label string, value float64) *Binding {
	b.byLabel[source+"."+label] = value
	return b
}

// Lookup resolves a reference against the binding
func (b *Binding) Lookup(ref Ref) (float64, bool) {
	if b == nil {
		return 0, false
	}
	if ref.Kind == RefBracket {
		v, ok := b.byLabel[ref.Key]
		return v, ok
	}
	v, ok := b.byID[ref.Key]
	return v, ok
}

// Evaluator compiles and evaluates formulas with a shared compile cache.
// It is safe for concurrent use.
type Evaluator struct {
	cache *Cache
}

// NewEvaluator creates an evaluator backed by the given cache. A nil cache
// gets a fresh one with the default bound.
func NewEvaluator(cache *Cache) *Evaluator {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Evaluator{cache: cache}
}

// Compile returns the compiled program for an expression, consulting the
// cache first. Compilation failures are not cached; a broken formula in one
// submission must not poison a later corrected lookup of different text.
func (e *Evaluator) Compile(expression string) (*Program, error) {
	if p, ok := e.cache.Get(expression); ok {
		return p, nil
	}
	p, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	e.cache.Put(expression, p)
	return p, nil
}

// Evaluate compiles (or fetches) the expression and evaluates it against
// the binding. The second return lists references the binding could not
// resolve; each contributed 0 to the result and callers should surface
// that as a data-quality warning.
func (e *Evaluator) Evaluate(expression string, binding *Binding) (float64, []string, error) {
	p, err := e.Compile(expression)
	if err != nil {
		return 0, nil, err
	}
	value, unresolved := p.Eval(binding.Lookup)
	return value, unresolved, nil
}

// CacheStats exposes compile-cache hit and miss counts for instrumentation
func (e *Evaluator) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}
