package pipe

import "github.com/polisai/conduit/pkg/domain"

// Classify computes the connection type across dir without touching the cache.
//
// A neighbouring segment is a PEER candidate, otherwise a storage endpoint exposed
// on the facing side is a STORAGE candidate. The candidate then passes through the
// module filters of this segment and, for peers, of the neighbour as well.
func Classify(w World, seg *Segment, dir domain.Direction) domain.ConnectionType {
	pos := seg.pos.Offset(dir)
	ctx := NewContext(w, seg)

	if next, ok := w.Segment(pos); ok {
		neighbor := Neighbor{Pos: pos, Type: next.pipe.name, Segment: next}
		candidate := seg.pipe.FilterConnection(ctx, dir, neighbor, domain.ConnectionPeer)
		if candidate == domain.ConnectionNone {
			return candidate
		}
		back := Neighbor{Pos: seg.pos, Type: seg.pipe.name, Segment: seg}
		return next.pipe.FilterConnection(NewContext(w, next), dir.Opposite(), back, candidate)
	}

	if _, ok := w.Storage(pos, dir.Opposite()); ok {
		neighbor := Neighbor{Pos: pos, Type: w.BlockType(pos)}
		return seg.pipe.FilterConnection(ctx, dir, neighbor, domain.ConnectionStorage)
	}
	return domain.ConnectionNone
}

// Connection returns the classification of dir, computing and caching it when needed.
func (s *Segment) Connection(w World, dir domain.Direction) domain.ConnectionType {
	if s.cached[dir] {
		return s.connections[dir]
	}
	s.connections[dir] = Classify(w, s, dir)
	s.cached[dir] = true
	return s.connections[dir]
}
