package escalation

// history is a fixed-capacity ring buffer of emergency records. When full,
// the oldest record is evicted. Records live here for the lifetime of the
// process; nothing is persisted.
type history struct {
	records []*Record
	next    int
	size    int
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{
		records: make([]*Record, capacity),
	}
}

// add inserts a record, evicting the oldest when at capacity.
func (h *history) add(r *Record) {
	h.records[h.next] = r
	h.next = (h.next + 1) % len(h.records)
	if h.size < len(h.records) {
		h.size++
	}
}

// list returns up to limit record copies, newest first. limit <= 0 means
// all retained records.
func (h *history) list(limit int) []Record {
	if limit <= 0 || limit > h.size {
		limit = h.size
	}
	out := make([]Record, 0, limit)
	idx := h.next - 1
	for i := 0; i < limit; i++ {
		if idx < 0 {
			idx += len(h.records)
		}
		out = append(out, h.records[idx].clone())
		idx--
	}
	return out
}

// find returns the live record with the given id, or nil.
func (h *history) find(id string) *Record {
	for i := 0; i < h.size; i++ {
		idx := h.next - 1 - i
		if idx < 0 {
			idx += len(h.records)
		}
		if h.records[idx].ID == id {
			return h.records[idx]
		}
	}
	return nil
}
