package command

import (
	"fmt"
	"strings"

	"github.com/relaywatch/go-relaywatch/core"
)

const (
	TypeReconcileDelivery = "relaywatch.command.delivery.reconcile"
	TypeAcceptDelivery    = "relaywatch.command.delivery.accept"
)

type ReconcileDeliveryMessage struct {
	Request core.ReconcileRequest
}

func (ReconcileDeliveryMessage) Type() string { return TypeReconcileDelivery }

func (m ReconcileDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.Request.Notification.EventID) == "" {
		return fmt.Errorf("command: event id is required")
	}
	if strings.TrimSpace(m.Request.Notification.AccountID) == "" &&
		strings.TrimSpace(m.Request.TenantID) == "" {
		return fmt.Errorf("command: account id or tenant id is required")
	}
	return nil
}

type AcceptDeliveryMessage struct {
	Request core.ReconcileRequest
}

func (AcceptDeliveryMessage) Type() string { return TypeAcceptDelivery }

func (m AcceptDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.Request.Notification.EventID) == "" {
		return fmt.Errorf("command: event id is required")
	}
	return nil
}
