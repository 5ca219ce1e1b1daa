package dedup

import (
	"math"
	"strings"
)

// tfidfSimilarities vectorizes the candidate and the corpus with a TF-IDF
// model fit on this batch only (the vocabulary is local to the comparison
// window, not pre-trained) and returns the cosine similarity between the
// candidate and each corpus member.
func tfidfSimilarities(candidate string, corpus []string) []float64 {
	docs := make([][]string, 0, len(corpus)+1)
	docs = append(docs, strings.Fields(candidate))

	for _, text := range corpus {
		docs = append(docs, strings.Fields(text))
	}

	vocab := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))

		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				vocab[term]++
			}
		}
	}

	idf := make(map[string]float64, len(vocab))
	n := float64(len(docs))

	for term, df := range vocab {
		// Smoothed idf, so terms present in every document still contribute.
		idf[term] = math.Log((1+n)/(1+float64(df))) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorize(doc, idf)
	}

	similarities := make([]float64, len(corpus))
	for i := range corpus {
		similarities[i] = dot(vectors[0], vectors[i+1])
	}

	return similarities
}

// vectorize builds an l2-normalized tf-idf vector, so cosine similarity
// reduces to a dot product.
func vectorize(doc []string, idf map[string]float64) map[string]float64 {
	if len(doc) == 0 {
		return nil
	}

	counts := make(map[string]float64, len(doc))
	for _, term := range doc {
		counts[term]++
	}

	vec := make(map[string]float64, len(counts))

	var norm float64

	for term, count := range counts {
		w := (count / float64(len(doc))) * idf[term]
		vec[term] = w
		norm += w * w
	}

	if norm == 0 {
		return nil
	}

	norm = math.Sqrt(norm)
	for term := range vec {
		vec[term] /= norm
	}

	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var sum float64

	for term, w := range a {
		sum += w * b[term]
	}

	return sum
}
