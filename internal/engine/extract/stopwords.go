package extract

// DefaultStopwords returns the stock English stop-word set used when the
// configuration does not supply its own.
func DefaultStopwords() Stopwords {
	return NewStopwords(
		"a", "an", "and", "are", "as", "at",
		"be", "by", "for", "from", "has", "he",
		"in", "is", "it", "its", "of", "on",
		"or", "that", "the", "to", "was", "were",
		"will", "with", "this", "but", "they",
		"have", "had", "what", "when", "where",
		"who", "which", "their", "if", "each",
		"do", "not", "no", "so", "can",
	)
}
