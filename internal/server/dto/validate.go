package dto

// Validatable is implemented by request DTOs that validate themselves after
// decoding. Validate returns an ErrorWithStatus or a plain error that the
// handler wrapper turns into a 400 response.
type Validatable interface {
	Validate() error
}
