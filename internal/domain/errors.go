package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound                  = errors.New("recurso no encontrado")
	ErrInvalidInput              = errors.New("entrada inválida")
	ErrDuplicate                 = errors.New("recurso duplicado")
	ErrUnauthorized              = errors.New("no autorizado")
	ErrForbidden                 = errors.New("acceso denegado")
	ErrConflict                  = errors.New("conflicto con el estado actual")
	ErrInsufficientStock         = errors.New("stock insuficiente")
	ErrInsufficientBatchQuantity = errors.New("cantidad insuficiente en el lote")
	ErrConcurrentModification    = errors.New("modificación concurrente detectada")
	ErrStoreUnavailable          = errors.New("almacenamiento no disponible")
)

// StockShortage detalla un faltante de stock: producto afectado, cantidad pedida
// y cantidad disponible al momento del plan. Envuelve ErrInsufficientStock para
// que errors.Is siga funcionando en handlers y callers.
type StockShortage struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s: solicitado %s, disponible %s",
		e.ProductID, e.Requested.String(), e.Available.String())
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *StockShortage) Unwrap() error { return ErrInsufficientStock }
