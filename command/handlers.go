package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/relaywatch/go-relaywatch/core"
)

type ReconcilingService interface {
	Reconcile(ctx context.Context, req core.ReconcileRequest) (core.ReconcileOutcome, error)
	Accept(ctx context.Context, req core.ReconcileRequest) (core.AcceptResult, error)
}

type ReconcileDeliveryCommand struct {
	service ReconcilingService
}

func NewReconcileDeliveryCommand(service ReconcilingService) *ReconcileDeliveryCommand {
	return &ReconcileDeliveryCommand{service: service}
}

func (c *ReconcileDeliveryCommand) Execute(ctx context.Context, msg ReconcileDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	out, err := c.service.Reconcile(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AcceptDeliveryCommand struct {
	service ReconcilingService
}

func NewAcceptDeliveryCommand(service ReconcilingService) *AcceptDeliveryCommand {
	return &AcceptDeliveryCommand{service: service}
}

func (c *AcceptDeliveryCommand) Execute(ctx context.Context, msg AcceptDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: accept service is required")
	}
	out, err := c.service.Accept(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
