// Package apperr definiert die Fehlerklassen, die Services an die HTTP-Schicht melden.
package apperr

import (
	"errors"
	"fmt"
)

// Kind klassifiziert einen Fehler für die Abbildung auf HTTP-Status.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	UnsupportedMediaType
	NotFound
	Conflict
	UpstreamUnavailable
	StorageFailure
)

// String liefert den Namen der Klasse für Logs.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case UnsupportedMediaType:
		return "unsupported_media_type"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case StorageFailure:
		return "storage_failure"
	default:
		return "internal"
	}
}

// Reason präzisiert UpstreamUnavailable.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonConnection Reason = "connection"
	ReasonStatus     Reason = "status"
)

// Error trägt neben der Ursache eine nutzersichtbare Meldung.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

// Error setzt Klasse, Meldung und Ursache zusammen.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Unwrap gibt die Ursache frei.
func (e *Error) Unwrap() error { return e.Err }

// New erzeugt einen Fehler ohne Ursache.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap erzeugt einen Fehler mit Ursache err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Upstream meldet einen nicht erreichbaren oder fehlerhaften Fremddienst.
func Upstream(reason Reason, message string, err error) *Error {
	return &Error{Kind: UpstreamUnavailable, Reason: reason, Message: message, Err: err}
}

// From liefert den ersten *Error in der Kette von err.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf liefert die Fehlerklasse; unbekannte Fehler gelten als Internal.
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind
	}
	return Internal
}

// Is meldet, ob err (irgendwo in der Kette) zur Klasse kind gehört.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
