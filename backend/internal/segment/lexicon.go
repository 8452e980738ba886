package segment

// Function-word lexicons used for the Latin-script language vote. Only
// words that are unambiguous evidence for one side are listed; anything
// that collides with common English ("a", "on", "die", "as") is left out
// so short ambiguous runs keep their English default.

var englishWords = wordSet(
	"the", "an", "and", "or", "but", "if", "of", "to", "in", "at", "by",
	"for", "with", "from", "is", "are", "was", "were", "be", "been", "it",
	"this", "that", "these", "those", "we", "you", "they", "he", "she",
	"i", "my", "your", "our", "their", "please", "not", "do", "does",
	"did", "will", "would", "can", "could", "should", "have", "has", "had",
	"there", "here", "today", "tomorrow", "don't", "won't", "can't",
)

var foreignWords = wordSet(
	// French
	"le", "la", "les", "des", "une", "du", "au", "aux", "est", "et",
	"avec", "pour", "vous", "nous", "dans", "que", "qui", "ne", "pas",
	"sur", "veuillez", "merci", "sans",
	// Spanish
	"el", "los", "las", "una", "uno", "por", "para", "usted", "pero",
	"con", "sin", "muy", "hoy", "mañana", "dinero",
	// German
	"der", "das", "und", "ist", "nicht", "für", "mit", "ein", "eine",
	"einen", "zu", "aber", "ich", "sie", "wir", "haben", "werden", "bitte",
	// Italian
	"il", "gli", "di", "che", "non", "sono", "questo", "come", "per",
	// Portuguese
	"uma", "não", "em", "com", "mas", "por", "você", "hoje",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
