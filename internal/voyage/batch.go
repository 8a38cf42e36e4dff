package voyage

// Batch is a group of inputs sized to fit a single embeddings request.
type Batch struct {
	// Start is the index of the first text within the original slice.
	Start  int
	Texts  []string
	Tokens int
}

// buildBatches splits texts into request-sized batches, preserving order.
// A batch closes when adding the next text would push the estimated token
// total past maxTokens, or when it reaches maxSize inputs. A single text
// whose estimate alone exceeds maxTokens is sent as a batch of one; the
// provider enforces the real limit and rejects it if it is truly too large.
func buildBatches(texts []string, maxTokens, maxSize int) []Batch {
	var batches []Batch
	var cur Batch

	flush := func(next int) {
		if len(cur.Texts) > 0 {
			batches = append(batches, cur)
		}
		cur = Batch{Start: next}
	}

	for i, text := range texts {
		tokens := EstimateTokens(text)
		if len(cur.Texts) > 0 && (cur.Tokens+tokens > maxTokens || len(cur.Texts) >= maxSize) {
			flush(i)
		}
		cur.Texts = append(cur.Texts, text)
		cur.Tokens += tokens
	}
	flush(len(texts))
	return batches
}
