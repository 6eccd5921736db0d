// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword tables for the rule-based extractor. The tables are ordered:
// the first matching entry wins, so more specific keywords must come
// before the generic ones they contain ("stati uniti" before "usa").
// Keywords cover Italian first and English second, matching the catalog
// locales.
//
// Matching is token-aware, not raw substring: a keyword must start at a
// word boundary, and unless flagged as a prefix stem it must end at one
// too ("usa" never matches inside "scusa", "euro" never matches inside
// "europa"). Stems like "accadem" match any continuation.

// keyword is one lexicon token. Prefix stems match any word starting
// with Text.
type keyword struct {
	Text   string
	Prefix bool
}

// countryEntry maps a keyword to a destination code. City-flagged
// entries also supply the optional city hint when matched.
type countryEntry struct {
	Keyword string
	Code    string
	City    string // display name when the keyword is a city, else empty
}

// countryLexicon maps country and characteristic city names to the
// configured destination codes.
var countryLexicon = []countryEntry{
	{Keyword: "stati uniti", Code: "us"},
	{Keyword: "new york", Code: "us", City: "New York"},
	{Keyword: "boston", Code: "us", City: "Boston"},
	{Keyword: "san diego", Code: "us", City: "San Diego"},
	{Keyword: "miami", Code: "us", City: "Miami"},
	{Keyword: "america", Code: "us"},
	{Keyword: "usa", Code: "us"},
	{Keyword: "regno unito", Code: "uk"},
	{Keyword: "inghilterra", Code: "uk"},
	{Keyword: "gran bretagna", Code: "uk"},
	{Keyword: "londra", Code: "uk", City: "London"},
	{Keyword: "london", Code: "uk", City: "London"},
	{Keyword: "oxford", Code: "uk", City: "Oxford"},
	{Keyword: "cambridge", Code: "uk", City: "Cambridge"},
	{Keyword: "brighton", Code: "uk", City: "Brighton"},
	{Keyword: "irlanda", Code: "ie"},
	{Keyword: "ireland", Code: "ie"},
	{Keyword: "dublino", Code: "ie", City: "Dublin"},
	{Keyword: "dublin", Code: "ie", City: "Dublin"},
	{Keyword: "galway", Code: "ie", City: "Galway"},
	{Keyword: "canada", Code: "ca"},
	{Keyword: "toronto", Code: "ca", City: "Toronto"},
	{Keyword: "vancouver", Code: "ca", City: "Vancouver"},
	{Keyword: "australia", Code: "au"},
	{Keyword: "sydney", Code: "au", City: "Sydney"},
	{Keyword: "brisbane", Code: "au", City: "Brisbane"},
	{Keyword: "gold coast", Code: "au", City: "Gold Coast"},
	{Keyword: "malta", Code: "mt"},
	{Keyword: "sliema", Code: "mt", City: "Sliema"},
	{Keyword: "valletta", Code: "mt", City: "Valletta"},
}

// SupportedCountries returns the distinct destination codes present in
// the country lexicon, in table order.
func SupportedCountries() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, e := range countryLexicon {
		if !seen[e.Code] {
			seen[e.Code] = true
			codes = append(codes, e.Code)
		}
	}
	return codes
}

// termEntry maps a season/term keyword to a week count.
type termEntry struct {
	Keyword keyword
	Weeks   int
}

// durationTerms maps term keywords to weeks. Checked before the
// "<number> <unit>" pattern.
var durationTerms = []termEntry{
	{Keyword: keyword{Text: "estate"}, Weeks: 12},
	{Keyword: keyword{Text: "estiv", Prefix: true}, Weeks: 12}, // estivo/estiva
	{Keyword: keyword{Text: "summer"}, Weeks: 12},
	{Keyword: keyword{Text: "trimestre"}, Weeks: 12},
	{Keyword: keyword{Text: "quarter"}, Weeks: 12},
	{Keyword: keyword{Text: "semestre"}, Weeks: 24},
	{Keyword: keyword{Text: "semester"}, Weeks: 24},
	{Keyword: keyword{Text: "term"}, Weeks: 24},
	{Keyword: keyword{Text: "anno"}, Weeks: 48},
	{Keyword: keyword{Text: "annuale"}, Weeks: 48},
	{Keyword: keyword{Text: "year"}, Weeks: 48},
}

// goalKeywords gate verbatim acceptance of the whole message as the trip
// goal. The keyword only gates; it does not extract a sub-span.
var goalKeywords = []keyword{
	// academic
	{Text: "università"}, {Text: "universita"}, {Text: "university"},
	{Text: "laurea"}, {Text: "accadem", Prefix: true}, {Text: "academic"},
	// cultural
	{Text: "cultura"}, {Text: "cultural", Prefix: true}, {Text: "culture"},
	// career
	{Text: "lavoro"}, {Text: "carriera"}, {Text: "career"}, {Text: "job"},
	// exam prep
	{Text: "ielts"}, {Text: "toefl"}, {Text: "esame"}, {Text: "esami"},
	{Text: "exam", Prefix: true}, {Text: "certificaz", Prefix: true},
	{Text: "certificat", Prefix: true},
	// relocation
	{Text: "trasferir", Prefix: true}, {Text: "trasferim", Prefix: true},
	{Text: "relocat", Prefix: true}, {Text: "vivere all", Prefix: true},
}

// currencyMarkers are checked near a numeric token to accept it as a
// budget. Symbols match anywhere; words match whole tokens only, so
// "euro" never fires on "europa".
var currencyMarkers = []keyword{
	{Text: "€"}, {Text: "$"}, {Text: "£"},
	{Text: "euro"}, {Text: "euros"}, {Text: "eur"},
	{Text: "dollari"}, {Text: "dollaro"}, {Text: "dollar"}, {Text: "dollars"},
	{Text: "sterline"}, {Text: "sterlina"}, {Text: "pound"}, {Text: "pounds"},
	{Text: "soldi"}, {Text: "budget"},
}

// topicKeywords mark a message as wizard-relevant even before any slot
// is parsed. Country and duration keywords count separately.
var topicKeywords = []keyword{
	{Text: "corso"}, {Text: "corsi"}, {Text: "course", Prefix: true},
	{Text: "scuola"}, {Text: "scuole"}, {Text: "school", Prefix: true},
	{Text: "inglese"}, {Text: "english"},
	{Text: "vacanza studio"}, {Text: "viaggio"}, {Text: "trip"},
	{Text: "studiare"}, {Text: "study"},
	{Text: "lingua"}, {Text: "lingue"}, {Text: "language", Prefix: true},
	{Text: "estero"}, {Text: "abroad"},
	{Text: "programma"}, {Text: "programmi"}, {Text: "program", Prefix: true},
	{Text: "settiman", Prefix: true}, {Text: "week", Prefix: true},
	{Text: "mesi"}, {Text: "mese"}, {Text: "month", Prefix: true},
}

// isWordRune reports whether r continues a word for boundary checks.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// hasKeyword reports whether kw occurs in the lowercased text at a word
// boundary. Symbol keywords (no letters) match as plain substrings.
// Prefix stems only need the left boundary.
func hasKeyword(norm string, kw keyword) bool {
	letters := false
	for _, r := range kw.Text {
		if unicode.IsLetter(r) {
			letters = true
			break
		}
	}
	if !letters {
		return strings.Contains(norm, kw.Text)
	}
	for from := 0; ; {
		idx := strings.Index(norm[from:], kw.Text)
		if idx < 0 {
			return false
		}
		idx += from
		leftOK := idx == 0
		if !leftOK {
			prev, _ := utf8.DecodeLastRuneInString(norm[:idx])
			leftOK = !isWordRune(prev)
		}
		end := idx + len(kw.Text)
		rightOK := kw.Prefix || end == len(norm)
		if !rightOK {
			next, _ := utf8.DecodeRuneInString(norm[end:])
			rightOK = !isWordRune(next)
		}
		if leftOK && rightOK {
			return true
		}
		from = idx + 1
	}
}

// hasPhrase is hasKeyword for plain whole-word phrases.
func hasPhrase(norm, phrase string) bool {
	return hasKeyword(norm, keyword{Text: phrase})
}
