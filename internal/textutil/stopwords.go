package textutil

// stopwords is the bilingual (English/French) stopword set used by the
// tokenizer when compiling a query into an FTS disjunction. Module-scope,
// never mutated at runtime, per spec.md's "shared static tables" note.
var stopwords = buildStopwordSet(
	// English
	"a", "about", "above", "after", "again", "all", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has",
	"have", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "i", "if", "in", "into", "is", "it", "its",
	"itself", "just", "me", "more", "most", "my", "myself", "no", "nor",
	"not", "now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "ourselves", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "you", "your", "yours", "yourself", "yourselves",
	// French
	"au", "aux", "avec", "ce", "ces", "dans", "de", "des", "du", "elle",
	"en", "et", "eux", "il", "ils", "je", "la", "le", "leur", "lui", "ma",
	"mais", "me", "même", "mes", "moi", "mon", "ne", "nos", "notre", "nous",
	"on", "ou", "par", "pas", "pour", "qu", "que", "qui", "sa", "se", "ses",
	"son", "sur", "ta", "te", "tes", "toi", "ton", "tu", "un", "une",
	"vos", "votre", "vous", "c", "d", "j", "l", "à", "été", "être", "avoir",
)

func buildStopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether the lowercased token is in the bilingual stopword set.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
