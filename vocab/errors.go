package vocab

import "errors"

var (
	// ErrInvalidVocabulary is returned when vocabulary data cannot be compiled.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")

	// ErrConfidenceOrder is returned when tier confidences are not ordered
	// proper nouns > terms > generic phrases.
	ErrConfidenceOrder = errors.New("vocabulary confidence tiers out of order")
)
