package repository

// Repositories agrupa los puertos atados a una misma transacción (ver ports.TxRunner).
type Repositories struct {
	Movements     MovementRepository
	Balances      DailyBalanceRepository
	Products      ProductRepository
	Transfers     TransferRepository
	Verifications VerificationRepository
}
