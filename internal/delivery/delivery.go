// internal/delivery/delivery.go
//
// Pesquisa – delivery strategies.
//
// Context
//   A validated record leaves the process in one of two ways: posted to the
//   pesquisa backend (Remote) or handed to the messaging app as a deep link
//   (Messaging).  The submission controller only sees the Strategy interface
//   and the error taxonomy below, so adding a third channel never touches the
//   state machine.
//
// Error taxonomy
//   •  KindDuplicate   – the backend already holds this phone or CPF.  Field
//                       tells which one.
//   •  KindNetwork     – no response at all (refused, DNS, timeout).
//   •  KindUnexpected  – anything else, including a 2xx that said
//                       success=false and a deep link that could not be built.
//
// Notes
//   •  Strategies never retry.  A second attempt is a new Submit.
//   •  Detail is for logs; Message is what the respondent reads.
//
//------------------------------------------------------------------------------

package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Strategy sends one frozen record somewhere.
type Strategy interface {
	Name() string
	Deliver(ctx context.Context, r survey.Record) (Receipt, error)
}

// Receipt describes a successful hand-off.  ID is set by Remote, Link by
// Messaging.
type Receipt struct {
	ID   string
	Link string
	At   time.Time
}

// Kind classifies a delivery failure.
type Kind int

const (
	KindDuplicate Kind = iota + 1
	KindNetwork
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate"
	case KindNetwork:
		return "network"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Respondent-facing messages.
const (
	MsgDuplicatePhone = "Este número de WhatsApp já foi cadastrado em uma pesquisa anterior. Cada número pode participar apenas uma vez."
	MsgDuplicateCPF   = "Este CPF já foi cadastrado em uma pesquisa anterior. Cada CPF pode participar apenas uma vez."
	MsgNetwork        = "Erro de conexão. Verifique sua internet e tente novamente."
	MsgUnexpected     = "Erro inesperado. Tente novamente em alguns instantes."
	MsgLink           = "Não foi possível abrir o WhatsApp. Tente novamente."
)

// Error is the only error type a Strategy returns.
type Error struct {
	Kind    Kind
	Field   survey.FieldKind // KindDuplicate only
	Detail  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("delivery %s: %s", e.Kind, e.Detail)
	}
	return "delivery " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts *Error from err.  Foreign errors are reported as
// KindUnexpected so callers always get a message to show.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Kind: KindUnexpected, Detail: err.Error(), Message: MsgUnexpected, Err: err}
}

func duplicate(field survey.FieldKind, detail string) *Error {
	msg := MsgDuplicatePhone
	if field == survey.FieldNationalID {
		msg = MsgDuplicateCPF
	}
	return &Error{Kind: KindDuplicate, Field: field, Detail: detail, Message: msg}
}

func network(err error) *Error {
	return &Error{Kind: KindNetwork, Detail: err.Error(), Message: MsgNetwork, Err: err}
}

func unexpected(msg string, err error) *Error {
	e := &Error{Kind: KindUnexpected, Message: msg, Err: err}
	if msg == "" {
		e.Message = MsgUnexpected
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// -----------------------------------------------------------------------------
// Selection
// -----------------------------------------------------------------------------

// Mode names a strategy in configuration.
type Mode string

const (
	ModeRemote    Mode = "remote"
	ModeMessaging Mode = "messaging"
)

// Settings is everything New needs.  Client is required for ModeRemote;
// Messaging for ModeMessaging.
type Settings struct {
	Mode      Mode
	Client    *api.Client
	Messaging *Messaging
}

// New returns the strategy selected by s.Mode.
func New(s Settings) (Strategy, error) {
	switch s.Mode {
	case ModeRemote, "":
		if s.Client == nil {
			return nil, errors.New("delivery: remote mode needs a backend client")
		}
		return &Remote{Client: s.Client}, nil
	case ModeMessaging:
		if s.Messaging == nil {
			return nil, errors.New("delivery: messaging mode needs messaging settings")
		}
		return s.Messaging, nil
	default:
		return nil, fmt.Errorf("delivery: unknown mode %q", s.Mode)
	}
}
