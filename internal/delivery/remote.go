// internal/delivery/remote.go
//
// Remote posts the record to the pesquisa backend.

package delivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/payload"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Remote is the backend strategy.
type Remote struct {
	Client *api.Client
}

// Name implements Strategy.
func (*Remote) Name() string { return string(ModeRemote) }

// Deliver implements Strategy.
func (s *Remote) Deliver(ctx context.Context, r survey.Record) (Receipt, error) {
	p, err := s.Client.CreatePesquisa(ctx, payload.ToRemote(r))
	if err == nil {
		return Receipt{ID: p.Key(), At: time.Now()}, nil
	}

	var te *api.TransportError
	if errors.As(err, &te) {
		return Receipt{}, network(err)
	}

	var se *api.StatusError
	if !errors.As(err, &se) {
		return Receipt{}, unexpected("", err)
	}

	if se.Status == http.StatusConflict {
		switch se.Code {
		case api.CodeWhatsAppDuplicate:
			return Receipt{}, duplicate(survey.FieldPhone, se.Error())
		case api.CodeCPFDuplicate:
			return Receipt{}, duplicate(survey.FieldNationalID, se.Error())
		}
	}

	// The backend's own message is shown when it wrote one; a bare status
	// text is not worth showing.
	msg := se.Message
	if msg == http.StatusText(se.Status) {
		msg = ""
	}
	return Receipt{}, unexpected(msg, err)
}
