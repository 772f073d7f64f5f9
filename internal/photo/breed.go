package photo

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var breedSegment = regexp.MustCompile(`breeds/([^/]+)/`)

// BreedFromURL derives a display breed from a dog.ceo image URL such as
// https://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg, which yields
// "Hound afghan". It returns "" when the URL carries no breed segment.
func BreedFromURL(photoURL string) string {
	m := breedSegment.FindStringSubmatch(photoURL)
	if m == nil {
		return ""
	}

	breed := strings.TrimSpace(strings.ReplaceAll(m[1], "-", " "))
	if breed == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(breed)
	return string(unicode.ToUpper(r)) + breed[size:]
}

// SecureURL upgrades a plain http URL to https.
func SecureURL(photoURL string) string {
	if strings.HasPrefix(photoURL, "http://") {
		return "https://" + strings.TrimPrefix(photoURL, "http://")
	}
	return photoURL
}
