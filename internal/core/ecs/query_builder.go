package ecs

type queryKind uint8

const (
	kindQuery1 queryKind = iota + 1
	kindQuery2
	kindQuery3
	kindShared1
)

type cacheEntry struct {
	kind  queryKind
	query cachedQuery
}

// QueryBuilder builds queries and caches them by filter. Identical requests
// return the same object; structural changes rebuild every dependent query
// in place.
type QueryBuilder struct {
	storage *ComponentStorage
	lookup  *ComponentLookup
	cache   map[uint64][]cacheEntry
	deps    map[TypeID][]cachedQuery
	count   int
}

func NewQueryBuilder(storage *ComponentStorage, lookup *ComponentLookup) *QueryBuilder {
	return &QueryBuilder{
		storage: storage,
		lookup:  lookup,
		cache:   make(map[uint64][]cacheEntry, 16),
		deps:    make(map[TypeID][]cachedQuery, 16),
	}
}

// Len returns the number of cached queries.
func (b *QueryBuilder) Len() int { return b.count }

// Invalidate rebuilds every cached query that depends on id.
func (b *QueryBuilder) Invalidate(id TypeID) {
	for _, q := range b.deps[id] {
		q.Recreate()
	}
}

// RecreateAll rebuilds every cached query.
func (b *QueryBuilder) RecreateAll() {
	for _, bucket := range b.cache {
		for _, entry := range bucket {
			entry.query.Recreate()
		}
	}
}

func (b *QueryBuilder) lookupCached(kind queryKind, info QueryInfo) (cachedQuery, uint64) {
	key := info.Hash()
	for _, entry := range b.cache[key] {
		if entry.kind == kind && entry.query.Info().Equal(info) {
			return entry.query, key
		}
	}
	return nil, key
}

func (b *QueryBuilder) insert(key uint64, kind queryKind, q cachedQuery) {
	q.Recreate()
	b.cache[key] = append(b.cache[key], cacheEntry{kind: kind, query: q})
	info := q.Info()
	seen := make(map[TypeID]struct{}, len(info.targets)+len(info.include)+len(info.exclude))
	for _, ids := range [][]TypeID{info.targets, info.include, info.exclude} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			b.deps[id] = append(b.deps[id], q)
		}
	}
	b.count++
}

// BuildQuery1 returns the cached Query1 for info, building it on first use.
func BuildQuery1[A any, PA ComponentPtr[A]](b *QueryBuilder, info QueryInfo) *Query1[A] {
	info = info.withTargets(TypeOf[A]())
	cached, key := b.lookupCached(kindQuery1, info)
	if cached != nil {
		return cached.(*Query1[A])
	}
	q := &Query1[A]{
		queryBase: queryBase{info: info, lookup: b.lookup},
		table:     GetOrCreate[A, PA](b.storage),
	}
	b.insert(key, kindQuery1, q)
	return q
}

// BuildQuery2 returns the cached Query2 for info.
func BuildQuery2[A any, B any, PA ComponentPtr[A], PB ComponentPtr[B]](b *QueryBuilder, info QueryInfo) *Query2[A, B] {
	info = info.withTargets(TypeOf[A](), TypeOf[B]())
	cached, key := b.lookupCached(kindQuery2, info)
	if cached != nil {
		return cached.(*Query2[A, B])
	}
	q := &Query2[A, B]{
		queryBase: queryBase{info: info, lookup: b.lookup},
		ta:        GetOrCreate[A, PA](b.storage),
		tb:        GetOrCreate[B, PB](b.storage),
	}
	b.insert(key, kindQuery2, q)
	return q
}

// BuildQuery3 returns the cached Query3 for info.
func BuildQuery3[A any, B any, C any, PA ComponentPtr[A], PB ComponentPtr[B], PC ComponentPtr[C]](b *QueryBuilder, info QueryInfo) *Query3[A, B, C] {
	info = info.withTargets(TypeOf[A](), TypeOf[B](), TypeOf[C]())
	cached, key := b.lookupCached(kindQuery3, info)
	if cached != nil {
		return cached.(*Query3[A, B, C])
	}
	q := &Query3[A, B, C]{
		queryBase: queryBase{info: info, lookup: b.lookup},
		ta:        GetOrCreate[A, PA](b.storage),
		tb:        GetOrCreate[B, PB](b.storage),
		tc:        GetOrCreate[C, PC](b.storage),
	}
	b.insert(key, kindQuery3, q)
	return q
}

// BuildSharedQuery1 returns the cached SharedQuery1 for info.
func BuildSharedQuery1[A any, PA ComponentPtr[A]](b *QueryBuilder, info QueryInfo) *SharedQuery1[A] {
	info = info.withTargets(TypeOf[A]())
	cached, key := b.lookupCached(kindShared1, info)
	if cached != nil {
		return cached.(*SharedQuery1[A])
	}
	q := &SharedQuery1[A]{
		queryBase: queryBase{info: info, lookup: b.lookup},
		table:     GetOrCreate[A, PA](b.storage),
		members:   make(map[Entity]struct{}),
	}
	b.insert(key, kindShared1, q)
	return q
}
