package domain

import "context"

type submissionIDKey struct{}

// WithSubmissionID adjunta al contexto el id de idempotencia de un envío.
// El cliente HTTP lo propaga en la cabecera de cada petición mutante para
// que los reintentos tras una caída lleguen identificados al servidor.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, id)
}

// SubmissionID devuelve el id adjunto al contexto, o cadena vacía.
func SubmissionID(ctx context.Context) string {
	id, _ := ctx.Value(submissionIDKey{}).(string)
	return id
}
