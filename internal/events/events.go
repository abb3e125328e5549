package events

// Exchange event types for downstream consumers (reporting, notifications).
const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionDeleted  = "transaction.deleted"
	EventSettlementClosed    = "settlement.closed"
	EventCleanupCompleted    = "cleanup.completed"
)

// TransactionPayload captures the minimal data to roll up a transaction event.
type TransactionPayload struct {
	TransactionID string `json:"transaction_id"`
	ChannelID     string `json:"channel_id"`
	Type          string `json:"type"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p TransactionPayload) ToMap() map[string]any {
	return map[string]any{
		"transaction_id": p.TransactionID,
		"channel_id":     p.ChannelID,
		"type":           p.Type,
	}
}

// SettlementPayload captures the minimal data to roll up a settlement closing.
type SettlementPayload struct {
	SettlementID   string `json:"settlement_id"`
	SequenceNumber int64  `json:"sequence_number"`
	Transactions   int    `json:"transactions"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SettlementPayload) ToMap() map[string]any {
	return map[string]any{
		"settlement_id":   p.SettlementID,
		"sequence_number": p.SequenceNumber,
		"transactions":    p.Transactions,
	}
}
