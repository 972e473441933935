package keywords

// stopWords is the curated multilingual stop-word list applied during
// tokenization. It mixes common English and German function words with
// generic advertising vocabulary that carries no niche signal.
var stopWords = map[string]bool{}

func init() {
	for _, w := range stopWordList {
		stopWords[w] = true
	}
}

var stopWordList = []string{
	// English function words
	"about", "after", "again", "against", "all", "also", "and", "any",
	"are", "because", "been", "before", "being", "below", "between",
	"both", "but", "can", "could", "did", "does", "doing", "down",
	"during", "each", "few", "for", "from", "further", "have", "having",
	"here", "how", "into", "its", "itself", "just", "more", "most", "not",
	"now", "off", "once", "only", "other", "our", "ours", "out", "over",
	"own", "same", "should", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "then", "there", "these", "they", "this",
	"those", "through", "under", "until", "very", "was", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will",
	"with", "would", "you", "your", "yours",
	// German function words
	"aber", "alle", "allem", "allen", "aller", "alles", "auch", "auf",
	"aus", "bei", "bin", "bis", "bist", "dann", "das", "dass", "dein",
	"deine", "dem", "den", "der", "des", "dich", "die", "dies", "diese",
	"diesem", "diesen", "dieser", "dieses", "dir", "doch", "dort", "durch",
	"ein", "eine", "einem", "einen", "einer", "eines", "euch", "euer",
	"für", "gegen", "habe", "haben", "hast", "hat", "hier", "ich",
	"ihr", "ihre", "ihrem", "ihren", "ihrer", "ihres", "immer", "ist",
	"kann", "kein", "keine", "können", "mehr", "mein", "meine", "mich",
	"mir", "mit", "nach", "nicht", "noch", "nur", "oder", "ohne", "schon",
	"sehr", "sein", "seine", "sich", "sie", "sind", "über", "und", "uns",
	"unser", "unter", "viel", "vom", "von", "vor", "war", "waren", "was",
	"weil", "wenn", "werden", "wie", "wieder", "wir", "wird", "wurde",
	"zum", "zur",
	// Generic ad vocabulary, English and German
	"angebot", "bestellen", "bestellung", "buy", "cart", "checkout",
	"code", "delivery", "deal", "discount", "exclusive", "free", "gratis",
	"gutschein", "heute", "hier", "jetzt", "kauf", "kaufen", "klick",
	"kostenlos", "kostenlose", "kostenloser", "lieferung", "limited",
	"link", "offer", "online", "order", "price", "preis", "rabatt",
	"sale", "save", "shipping", "shop", "sichern", "sofort", "sparen",
	"today", "versand", "versandkostenfrei", "website", "zufrieden",
}

// genericWords are too broad to anchor a compound keyword on their own.
var genericWords = map[string]bool{
	"good": true, "great": true, "best": true, "neue": true, "neuer": true,
	"neues": true, "ganz": true, "really": true, "every": true,
	"einfach": true, "perfekt": true, "perfect": true, "natural": true,
	"täglich": true, "daily": true,
}
