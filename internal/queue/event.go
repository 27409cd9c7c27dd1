// Package queue defines the account event payloads exchanged over the
// message broker, plus the publisher and the audit consumer.
package queue

// AccountEventsQueue is the durable queue account events are published to.
const AccountEventsQueue = "account.events"

// Account event types.
const (
    EventAccountRegistered  = "account.registered"
    EventAccountUpdated     = "account.updated"
    EventAccountActivated   = "account.activated"
    EventAccountDeactivated = "account.deactivated"
    EventAccountDeleted     = "account.deleted"
)

// AccountEvent is published after an account change has been committed.
// It carries enough for downstream consumers to audit or notify without
// querying the primary database.  Credentials are never included.
type AccountEvent struct {
    Type        string `json:"type"`
    AccountID   uint64 `json:"account_id"`
    Email       string `json:"email"`
    Username    string `json:"username"`
    IsActive    bool   `json:"is_active"`
    IsSuperuser bool   `json:"is_superuser"`
    OccurredAt  string `json:"occurred_at"`
}
