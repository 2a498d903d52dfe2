package retrieval

import "sort"

// ranking is one backend's ordered hit list for one query variant, fed
// into RRF fusion.
type ranking []ChunkHit

// fuseRRF implements Reciprocal Rank Fusion over an arbitrary number of
// rankings (spec §4.6): for each hit at 1-based rank in a ranking, add
// 1/(k0+rank) to its chunk's accumulated score. A chunk's representative
// record is the one with minimum tie-break key (doc_id, start_page,
// chunk_id) across all rankings it appeared in. Fusion is stable:
// permuting the input rankings yields identical output.
func fuseRRF(rankings []ranking, k0 float64, maxResults int) []ChunkHit {
	type fusedEntry struct {
		rep   ChunkHit
		score float64
	}
	fused := make(map[string]*fusedEntry)

	for _, r := range rankings {
		for i, hit := range r {
			rank := i + 1
			entry, ok := fused[hit.ChunkID]
			if !ok {
				entry = &fusedEntry{rep: hit}
				fused[hit.ChunkID] = entry
			} else if lessTieBreak(hit, entry.rep) {
				entry.rep = hit
			}
			entry.score += 1.0 / (k0 + float64(rank))
		}
	}

	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return lessTieBreak(entries[i].rep, entries[j].rep)
	})

	if maxResults > 0 && len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	out := make([]ChunkHit, len(entries))
	for i, e := range entries {
		hit := e.rep
		hit.Score = e.score
		out[i] = hit
	}
	return out
}

// lessTieBreak orders by (doc_id, start_page, chunk_id) ascending.
func lessTieBreak(a, b ChunkHit) bool {
	if a.DocID != b.DocID {
		return a.DocID < b.DocID
	}
	if a.StartPage != b.StartPage {
		return a.StartPage < b.StartPage
	}
	return a.ChunkID < b.ChunkID
}
