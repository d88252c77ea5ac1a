package pipeline

import "github.com/rotisserie/eris"

var (
	// ErrBusy is returned when a new turn is started while a previous one
	// is still between extraction and recommendation.
	ErrBusy = eris.New("pipeline: a turn is already in flight for this session")

	// ErrDiscoveryFormat is returned when the ranking model's output is not
	// a JSON array. Malformed model output is non-retryable for the turn;
	// the wrapping error carries the raw payload for diagnosis.
	ErrDiscoveryFormat = eris.New("pipeline: discovery response is not a JSON array")

	// ErrCartCreation is returned when the marketplace response carries no
	// cart identifier. The wrapping error carries the raw upstream body.
	ErrCartCreation = eris.New("pipeline: cart creation failed")

	// ErrInvalidQuote is returned when the exchange rate is non-positive or
	// the fiat total is not a finite positive number. Checked before any
	// division so Inf/NaN can never reach a monetary amount.
	ErrInvalidQuote = eris.New("pipeline: invalid settlement quote")

	// ErrNoRecommendation is returned for a buy action on an identifier
	// that is not in the session's current recommendation set.
	ErrNoRecommendation = eris.New("pipeline: product is not in the current recommendations")

	// ErrEmptyUtterance is returned when a turn starts with no usable text.
	ErrEmptyUtterance = eris.New("pipeline: utterance is empty")
)
