package generator

import "errors"

var (
	// ErrValidation marks missing or blank user input. No provider is called.
	ErrValidation = errors.New("validation failed")
	// ErrBusy is returned when another operation owns the session.
	ErrBusy = errors.New("session busy")

	ErrGeneration = errors.New("story generation failed")
	ErrIdea       = errors.New("idea generation failed")
	ErrRevision   = errors.New("story revision failed")
	ErrAudio      = errors.New("audio generation failed")
	// ErrDecode marks a malformed base64 audio payload.
	ErrDecode = errors.New("malformed audio payload")
)

// UserMessage returns the single line shown to the user for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "Espere a que termine la operación en curso."
	case errors.Is(err, ErrValidation):
		return "Por favor, complete el texto requerido antes de continuar."
	case errors.Is(err, ErrIdea):
		return "Error al generar la idea. Por favor, inténtelo de nuevo."
	case errors.Is(err, ErrGeneration):
		return "Error al generar el cuento. Por favor, inténtelo de nuevo."
	case errors.Is(err, ErrRevision):
		return "Error al revisar el cuento. Se ha restaurado la versión anterior."
	case errors.Is(err, ErrAudio), errors.Is(err, ErrDecode):
		return "Error al generar el audio. Por favor, inténtelo de nuevo."
	default:
		return "Se produjo un error inesperado."
	}
}
