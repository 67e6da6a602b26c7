package transfer

import (
	"context"

	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del store, pasando
// repositorios atados a esa transacción. Garantiza que la fase de aplicación
// del motor de transferencias sea todo-o-nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		transferRepo repository.TransferRepository,
	) error) error
}
