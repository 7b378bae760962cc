package relaywatch

import (
	"fmt"

	relaycommand "github.com/relaywatch/go-relaywatch/command"
	"github.com/relaywatch/go-relaywatch/core"
	relayquery "github.com/relaywatch/go-relaywatch/query"
)

type CommandQueryService interface {
	relaycommand.ReconcilingService
}

type Commands struct {
	ReconcileDelivery *relaycommand.ReconcileDeliveryCommand
	AcceptDelivery    *relaycommand.AcceptDeliveryCommand
}

type Queries struct {
	ListOutcomeRecords *relayquery.ListOutcomeRecordsQuery
	ListEventOutcomes  *relayquery.ListEventOutcomesQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	outcomeReader relayquery.OutcomeReader
}

func WithOutcomeReader(reader relayquery.OutcomeReader) FacadeOption {
	return func(options *facadeOptions) {
		options.outcomeReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("relaywatch: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.outcomeReader
	if reader == nil {
		reader = resolveOutcomeReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ReconcileDelivery: relaycommand.NewReconcileDeliveryCommand(service),
		AcceptDelivery:    relaycommand.NewAcceptDeliveryCommand(service),
	}
	facade.queries = Queries{
		ListOutcomeRecords: relayquery.NewListOutcomeRecordsQuery(reader),
		ListEventOutcomes:  relayquery.NewListEventOutcomesQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveOutcomeReader(service CommandQueryService) relayquery.OutcomeReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(relayquery.OutcomeReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		OutcomeStore() core.OutcomeStore
	})
	if !ok {
		return nil
	}
	store := provider.OutcomeStore()
	if store == nil {
		return nil
	}
	return store
}
