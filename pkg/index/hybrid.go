package index

// HybridSearch fuses semantic and keyword relevance over this snapshot:
//
//	score = alpha*normalize(semantic) + (1-alpha)*normalize(keyword)
//
// Each component is min-max normalized over its own result set; a chunk
// present in only one index contributes 0 for the missing component.
// alpha=1.0 and alpha=0.0 degenerate to the pure semantic and pure keyword
// rankings. The result holds min(topK, scored chunks) hits.
//
// queryVector may be nil (embedder unavailable); fusion then reduces to
// keyword-only regardless of alpha, which is the documented degradation
// path.
func (s *Snapshot) HybridSearch(queryVector []float32, queryTokens []string, topK int, alpha float64) []Hit {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	if queryVector == nil {
		alpha = 0
	}

	// The degenerate weights reproduce the single-index rankings exactly,
	// including their candidate sets.
	if alpha == 1.0 {
		return s.Vector.Search(queryVector, topK)
	}
	if alpha == 0.0 {
		return s.Keyword.Search(queryTokens, topK)
	}

	semantic := s.Vector.scoreAll(queryVector)
	keyword := s.Keyword.scoreAll(queryTokens)
	if len(semantic) == 0 && len(keyword) == 0 {
		return nil
	}

	normSem := minMaxNormalize(semantic)
	normKw := minMaxNormalize(keyword)

	combined := make(map[string]float64, len(normSem)+len(normKw))
	for id, score := range normSem {
		combined[id] += alpha * score
	}
	for id, score := range normKw {
		combined[id] += (1 - alpha) * score
	}

	hits := make([]Hit, 0, len(combined))
	for id, score := range combined {
		hits = append(hits, Hit{ChunkID: id, Score: score})
	}
	sortHits(hits)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// minMaxNormalize maps scores onto [0,1]. A uniform set maps to 1.0 so a
// single-result component still contributes full weight.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}
	first := true
	var lo, hi float64
	for _, s := range scores {
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make(map[string]float64, len(scores))
	if hi == lo {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - lo) / (hi - lo)
	}
	return out
}
