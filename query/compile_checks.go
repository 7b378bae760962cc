package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/relaywatch/go-relaywatch/core"
)

var (
	_ gocmd.Querier[ListOutcomeRecordsMessage, []core.OutcomeRecord] = (*ListOutcomeRecordsQuery)(nil)
	_ gocmd.Querier[ListEventOutcomesMessage, []core.OutcomeRecord]  = (*ListEventOutcomesQuery)(nil)
)
