package textnorm

import "strings"

var spanishStopwords = wordSet(`
a al algo algunas algunos ante antes como con contra cual cuando de del desde donde durante
e el ella ellas ellos en entre era eran es esa esas ese eso esos esta estaba estado estan
estas este esto estos fue fueron ha han hasta hay la las le les lo los mas me mi mientras muy
ni no nos nosotros o os otra otro para pero poco por porque que quien se sea ser si sido sin
sobre son su sus tambien te tiene tienen todo todos tras tu tus un una uno unos unas y ya
más está están también según sí él qué cómo cuál
`)

var englishStopwords = wordSet(`
a about after all also an and any are as at be been before being between but by can could
did do does during each for from had has have he her here him his how i if in into is it its
just may more most new no not now of on one only or other our out over said she should so
some than that the their them then there these they this those through to under up upon was
we were what when where which while who will with would you your
`)

var portugueseStopwords = wordSet(`
a ao aos as até com como da das de dela dele deles do dos e ela elas ele eles em entre era
essa esse esta este eu foi foram há isso isto já la lhe mais mas me mesmo meu minha muito na
nas nem no nos nós o os ou para pela pelas pelo pelos por qual quando que quem se sem ser seu
seus sua suas são também te tem tinha um uma umas uns você à às é
`)

var allStopwords = unionSets(spanishStopwords, englishStopwords, portugueseStopwords)

// IsStopword reports whether token is a stopword for lang ("es", "en", "pt").
// Any other lang checks every list.
func IsStopword(token, lang string) bool {
	set := stopwordsFor(lang)
	_, ok := set[token]
	return ok
}

func stopwordsFor(lang string) map[string]struct{} {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "es":
		return spanishStopwords
	case "en":
		return englishStopwords
	case "pt":
		return portugueseStopwords
	default:
		return allStopwords
	}
}

func wordSet(words string) map[string]struct{} {
	fields := strings.Fields(words)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

func unionSets(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, set := range sets {
		for w := range set {
			out[w] = struct{}{}
		}
	}
	return out
}
