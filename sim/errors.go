package sim

import "errors"

var (
	// ErrInvalidComposition reports a household composition with negative,
	// non-integer or all-zero class counts.
	ErrInvalidComposition = errors.New("invalid household composition")

	// ErrIndexMiss reports a transition whose destination is not in the state
	// table. It means enumeration and transition construction disagree.
	ErrIndexMiss = errors.New("destination state missing from state index")

	// ErrCodeOverflow reports a composition whose mixed-radix code space does
	// not fit in 64 bits.
	ErrCodeOverflow = errors.New("state code space exceeds 64 bits")

	// ErrInvalidParams reports inconsistent epidemiological parameters.
	ErrInvalidParams = errors.New("invalid model parameters")
)
