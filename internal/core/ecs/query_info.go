package ecs

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// QueryInfo describes a query's filter: the projected target types plus the
// types that must be present and absent on each matched entity. Targets are
// set by the Build* functions; callers only add includes and excludes.
type QueryInfo struct {
	targets []TypeID
	include []TypeID
	exclude []TypeID
}

func NewQueryInfo() QueryInfo { return QueryInfo{} }

// Include requires every id to be present.
func (q QueryInfo) Include(ids ...TypeID) QueryInfo {
	q.include = normalize(append(slices.Clone(q.include), ids...))
	return q
}

// Exclude requires every id to be absent.
func (q QueryInfo) Exclude(ids ...TypeID) QueryInfo {
	q.exclude = normalize(append(slices.Clone(q.exclude), ids...))
	return q
}

// With is Include for a static type.
func With[T any](q QueryInfo) QueryInfo { return q.Include(TypeOf[T]()) }

// Without is Exclude for a static type.
func Without[T any](q QueryInfo) QueryInfo { return q.Exclude(TypeOf[T]()) }

func (q QueryInfo) Targets() []TypeID  { return slices.Clone(q.targets) }
func (q QueryInfo) Includes() []TypeID { return slices.Clone(q.include) }
func (q QueryInfo) Excludes() []TypeID { return slices.Clone(q.exclude) }

func (q QueryInfo) withTargets(ids ...TypeID) QueryInfo {
	q.targets = ids
	return q
}

// DependsOn reports whether a change to id can alter the query's result.
func (q QueryInfo) DependsOn(id TypeID) bool {
	return slices.Contains(q.targets, id) ||
		slices.Contains(q.include, id) ||
		slices.Contains(q.exclude, id)
}

// Equal compares targets in order and includes/excludes as sets.
func (q QueryInfo) Equal(o QueryInfo) bool {
	return slices.Equal(q.targets, o.targets) &&
		slices.Equal(q.include, o.include) &&
		slices.Equal(q.exclude, o.exclude)
}

// Hash digests the ordered targets and the sorted include/exclude sets,
// with a section marker before each list so {A}{B} and {A,B}{} differ.
func (q QueryInfo) Hash() uint64 {
	d := xxhash.New()
	var buf [4]byte
	section := func(marker byte, ids []TypeID) {
		_, _ = d.Write([]byte{marker})
		for _, id := range ids {
			binary.LittleEndian.PutUint32(buf[:], uint32(id))
			_, _ = d.Write(buf[:])
		}
	}
	section('T', q.targets)
	section('I', q.include)
	section('E', q.exclude)
	return d.Sum64()
}

func normalize(ids []TypeID) []TypeID {
	slices.Sort(ids)
	return slices.Compact(ids)
}
