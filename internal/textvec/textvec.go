// Package textvec implements the term-frequency/inverse-document-frequency
// vector space shared by the similarity, secondary, and promoted tiers. The
// representation is deliberately self-contained so fitted vocabularies and
// weights serialize into the portable model artifact without any
// language-native object encoding.
package textvec

import (
	"math"
	"sort"
	"strings"
)

// Vector is a sparse L2-normalized term vector keyed by vocabulary index.
type Vector map[int]float64

// Config controls vectorizer fitting.
type Config struct {
	MaxFeatures int  `json:"max_features"`
	Bigrams     bool `json:"bigrams"`
}

// Vectorizer is a fitted TF-IDF transform. The zero value is unfitted; use
// Fit or NewFromVocabulary.
type Vectorizer struct {
	cfg    Config
	vocab  map[string]int
	terms  []string
	idf    []float64
	fitted bool
}

func NewVectorizer(cfg Config) *Vectorizer {
	return &Vectorizer{cfg: cfg}
}

// NewFromVocabulary rebuilds a fitted vectorizer from serialized terms and
// idf weights, as stored in a model artifact.
func NewFromVocabulary(cfg Config, terms []string, idf []float64) *Vectorizer {
	v := &Vectorizer{cfg: cfg, terms: terms, idf: idf, fitted: true}
	v.vocab = make(map[string]int, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
	}
	return v
}

// Terms returns the fitted vocabulary in index order.
func (v *Vectorizer) Terms() []string { return v.terms }

// IDF returns the fitted inverse-document-frequency weights in index order.
func (v *Vectorizer) IDF() []float64 { return v.idf }

// Fit learns the vocabulary and idf weights from the corpus and returns the
// transformed corpus vectors.
func (v *Vectorizer) Fit(docs []string) []Vector {
	df := make(map[string]int)
	totals := make(map[string]int)
	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokens := v.tokenize(doc)
		tokenized[i] = tokens
		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			totals[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	// Most frequent terms first so max_features keeps the informative head;
	// alphabetical within ties keeps fitting deterministic.
	sort.Slice(terms, func(i, j int) bool {
		if totals[terms[i]] != totals[terms[j]] {
			return totals[terms[i]] > totals[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.cfg.MaxFeatures > 0 && len(terms) > v.cfg.MaxFeatures {
		terms = terms[:v.cfg.MaxFeatures]
	}
	sort.Strings(terms)

	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	v.fitted = true

	out := make([]Vector, len(docs))
	for i, tokens := range tokenized {
		out[i] = v.vectorize(tokens)
	}
	return out
}

// Transform maps a document into the fitted space. Unknown terms are dropped.
func (v *Vectorizer) Transform(doc string) Vector {
	if !v.fitted {
		return Vector{}
	}
	return v.vectorize(v.tokenize(doc))
}

func (v *Vectorizer) vectorize(tokens []string) Vector {
	counts := make(map[int]float64)
	for _, t := range tokens {
		if idx, ok := v.vocab[t]; ok {
			counts[idx]++
		}
	}
	vec := make(Vector, len(counts))
	var norm float64
	for idx, count := range counts {
		w := count * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

func (v *Vectorizer) tokenize(doc string) []string {
	words := Tokenize(doc)
	if !v.cfg.Bigrams {
		return words
	}
	tokens := make([]string, 0, len(words)*2)
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1])
	}
	return tokens
}

// Tokenize lowercases, splits on non-alphanumeric runes, and drops English
// stop words and single-character tokens.
func Tokenize(doc string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(doc) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Cosine returns the cosine similarity between two sparse vectors.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot, na, nb float64
	for idx, av := range a {
		na += av * av
		if bv, ok := b[idx]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Centroid returns the mean of the provided vectors.
func Centroid(vectors []Vector) Vector {
	out := Vector{}
	if len(vectors) == 0 {
		return out
	}
	for _, vec := range vectors {
		for idx, val := range vec {
			out[idx] += val
		}
	}
	n := float64(len(vectors))
	for idx := range out {
		out[idx] /= n
	}
	return out
}

var stopWords = func() map[string]bool {
	words := []string{
		"about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "did", "do",
		"does", "doing", "down", "during", "each", "few", "for", "from",
		"further", "had", "has", "have", "having", "he", "her", "here",
		"hers", "him", "his", "how", "if", "in", "into", "is", "it", "its",
		"just", "me", "more", "most", "my", "no", "nor", "not", "now", "of",
		"off", "on", "once", "only", "or", "other", "our", "ours", "out",
		"over", "own", "same", "she", "should", "so", "some", "such", "than",
		"that", "the", "their", "theirs", "them", "then", "there", "these",
		"they", "this", "those", "through", "to", "too", "under", "until",
		"up", "very", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "you", "your",
		"yours",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
