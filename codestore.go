package main

// CodeStore keeps the latest shared document content per room. No history
// and no merging: the last write observed by the hub wins, which is fine
// for the intended single-active-editor usage.
type CodeStore struct {
	code map[string]string
}

func NewCodeStore() *CodeStore {
	return &CodeStore{code: make(map[string]string)}
}

func (s *CodeStore) Get(roomID string) (string, bool) {
	code, ok := s.code[roomID]
	return code, ok
}

func (s *CodeStore) Set(roomID, code string) {
	s.code[roomID] = code
}

func (s *CodeStore) Clear(roomID string) {
	delete(s.code, roomID)
}
