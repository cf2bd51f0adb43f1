package network

import "github.com/elliotchance/orderedmap/v2"

// SavedMoves holds the moves an autonomous proxy predicted but the authority has not acknowledged
// yet, ordered by sequence.
type SavedMoves struct {
	moves *orderedmap.OrderedMap[uint64, Move]
	max   int
}

// NewSavedMoves returns a buffer holding at most max moves. Saving more drops the oldest.
func NewSavedMoves(max int) *SavedMoves {
	return &SavedMoves{moves: orderedmap.NewOrderedMap[uint64, Move](), max: max}
}

// Add saves m. Sequences must increase. It reports whether the oldest move had to be dropped.
func (s *SavedMoves) Add(m Move) (dropped bool) {
	if s.max > 0 && s.moves.Len() >= s.max {
		if oldest := s.moves.Front(); oldest != nil {
			s.moves.Delete(oldest.Key)
			dropped = true
		}
	}
	s.moves.Set(m.Sequence, m)
	return dropped
}

// Get returns the move with sequence seq.
func (s *SavedMoves) Get(seq uint64) (Move, bool) {
	return s.moves.Get(seq)
}

// Update replaces a saved move with m, keeping its place. It does nothing if no move with the
// sequence of m is saved.
func (s *SavedMoves) Update(m Move) {
	if _, ok := s.moves.Get(m.Sequence); ok {
		s.moves.Set(m.Sequence, m)
	}
}

// Ack drops every move up to and including seq and returns how many were dropped.
func (s *SavedMoves) Ack(seq uint64) (n int) {
	for el := s.moves.Front(); el != nil && el.Key <= seq; {
		next := el.Next()
		s.moves.Delete(el.Key)
		el = next
		n++
	}
	return n
}

// Pending returns the saved moves oldest first.
func (s *SavedMoves) Pending() []Move {
	moves := make([]Move, 0, s.moves.Len())
	for el := s.moves.Front(); el != nil; el = el.Next() {
		moves = append(moves, el.Value)
	}
	return moves
}

// Len ...
func (s *SavedMoves) Len() int {
	return s.moves.Len()
}

// Clear drops every saved move.
func (s *SavedMoves) Clear() {
	s.moves = orderedmap.NewOrderedMap[uint64, Move]()
}
