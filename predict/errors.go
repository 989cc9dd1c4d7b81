package predict

import "errors"

// ErrModelUnavailable means no model could be resolved at startup. The
// HTTP layer maps it to 503; the message is shown to the caller as-is.
var ErrModelUnavailable = errors.New("Modelo não disponível. Treine e registre o modelo antes de consultar a API.")

// ValidationError rejects request input: an unparseable date or a bairro
// missing from the mapping. The message is user-facing.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// InternalError wraps an unexpected failure inside the serving path. The
// HTTP layer hides the cause from callers and logs it instead.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return "prediction failed: " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
