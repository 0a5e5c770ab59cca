// Package apperr définit la taxonomie d'erreurs métier partagée par le checkout,
// les paiements et les handlers HTTP.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	InvalidCart       Kind = "InvalidCart"
	ItemNotFound      Kind = "ItemNotFound"
	InvalidQuantity   Kind = "InvalidQuantity"
	InsufficientStock Kind = "InsufficientStock"
	InvalidState      Kind = "InvalidState"
	Forbidden         Kind = "Forbidden"
	NotFound          Kind = "NotFound"
	GatewayError      Kind = "GatewayError"
	Internal          Kind = "Internal"
)

// Error porte un Kind et un message lisible par le client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attache une cause technique sans l'exposer dans Message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf renvoie Internal pour toute erreur qui n'est pas un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// MessageOf renvoie le message client d'une erreur.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Erreur interne du serveur"
}
