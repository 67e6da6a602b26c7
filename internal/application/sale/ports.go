package sale

import (
	"context"

	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del store con los
// repositorios del motor de ventas atados a esa transacción. La aplicación de
// una venta (todas sus líneas) y de una reversión es todo-o-nada.
type TxRunner interface {
	RunSale(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		saleRepo repository.SaleDepletionRepository,
	) error) error
}
