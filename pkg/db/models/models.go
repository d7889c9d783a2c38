package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Vendor{},
		&StoreConnection{},
		&Order{},
		&OrderItem{},
		&WalletLedgerEntry{},
		&OutboxEvent{},
	}
}
