package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-lotes/internal/application/sale"
	"github.com/tu-usuario/stock-lotes/internal/application/transfer"
	"github.com/tu-usuario/stock-lotes/internal/domain"
	"github.com/tu-usuario/stock-lotes/internal/domain/entity"
	"github.com/tu-usuario/stock-lotes/internal/domain/repository"
)

// Asegura que los adaptadores implementan los puertos y el Store los TxRunner.
var (
	_ repository.BatchRepository         = (*BatchRepo)(nil)
	_ repository.TransferRepository      = (*TransferRepo)(nil)
	_ repository.SaleDepletionRepository = (*SaleDepletionRepo)(nil)
	_ repository.ShopRepository          = (*ShopRepo)(nil)
	_ repository.WarehouseRepository     = (*WarehouseRepo)(nil)
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ transfer.TxRunner                  = (*Store)(nil)
	_ sale.TxRunner                      = (*Store)(nil)
)

// Store implementación en memoria de todos los puertos del ledger, para modo
// dev y tests. Un mutex serializa las transacciones; el chequeo de versión por
// lote se respeta igual que en PostgreSQL, así que la semántica de concurrencia
// optimista del motor es observable sin base de datos.
type Store struct {
	mu         sync.Mutex
	batches    map[string]*entity.StockBatch
	transfers  map[string]*entity.StockTransfer
	depletions map[string]*entity.SaleDepletion
	bySaleID   map[string]string
	shops      map[string]*entity.Shop
	warehouses map[string]*entity.Warehouse
	products   map[string]*entity.Product
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		batches:    make(map[string]*entity.StockBatch),
		transfers:  make(map[string]*entity.StockTransfer),
		depletions: make(map[string]*entity.SaleDepletion),
		bySaleID:   make(map[string]string),
		shops:      make(map[string]*entity.Shop),
		warehouses: make(map[string]*entity.Warehouse),
		products:   make(map[string]*entity.Product),
	}
}

// Batches devuelve el adaptador de lotes (con locking propio).
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s, locked: false} }

// Transfers devuelve el adaptador de transferencias.
func (s *Store) Transfers() *TransferRepo { return &TransferRepo{s: s, locked: false} }

// SaleDepletions devuelve el adaptador de consumos de venta.
func (s *Store) SaleDepletions() *SaleDepletionRepo { return &SaleDepletionRepo{s: s, locked: false} }

// Shops devuelve el adaptador de tiendas.
func (s *Store) Shops() *ShopRepo { return &ShopRepo{s: s} }

// Warehouses devuelve el adaptador de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{s: s} }

// Products devuelve el adaptador de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones: el lock cubre todo el callback; ante error se restaura el
// snapshot previo (todo-o-nada, como la transacción SQL del adaptador pgx).
// ──────────────────────────────────────────────────────────────────────────────

// Run implementa transfer.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	transferRepo repository.TransferRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := s.snapshot()
	if err := fn(&BatchRepo{s: s, locked: true}, &TransferRepo{s: s, locked: true}); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

// RunSale implementa sale.TxRunner.
func (s *Store) RunSale(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	saleRepo repository.SaleDepletionRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := s.snapshot()
	if err := fn(&BatchRepo{s: s, locked: true}, &SaleDepletionRepo{s: s, locked: true}); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

type state struct {
	batches    map[string]*entity.StockBatch
	transfers  map[string]*entity.StockTransfer
	depletions map[string]*entity.SaleDepletion
	bySaleID   map[string]string
}

func (s *Store) snapshot() state {
	st := state{
		batches:    make(map[string]*entity.StockBatch, len(s.batches)),
		transfers:  make(map[string]*entity.StockTransfer, len(s.transfers)),
		depletions: make(map[string]*entity.SaleDepletion, len(s.depletions)),
		bySaleID:   make(map[string]string, len(s.bySaleID)),
	}
	for id, b := range s.batches {
		st.batches[id] = copyBatch(b)
	}
	for id, t := range s.transfers {
		st.transfers[id] = copyTransfer(t)
	}
	for id, d := range s.depletions {
		st.depletions[id] = copyDepletion(d)
	}
	for k, v := range s.bySaleID {
		st.bySaleID[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.batches = st.batches
	s.transfers = st.transfers
	s.depletions = st.depletions
	s.bySaleID = st.bySaleID
}

// lock toma el mutex solo si el adaptador no corre dentro de una transacción.
func (s *Store) lock(alreadyLocked bool) func() {
	if alreadyLocked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// ──────────────────────────────────────────────────────────────────────────────
// BatchRepo
// ──────────────────────────────────────────────────────────────────────────────

// BatchRepo adaptador en memoria de BatchRepository.
type BatchRepo struct {
	s      *Store
	locked bool // true dentro de Run/RunSale (lock ya tomado)
}

func (r *BatchRepo) ListActiveByLocation(ctx context.Context, productID string, loc entity.LocationRef) ([]entity.StockBatch, error) {
	defer r.s.lock(r.locked)()
	out := make([]entity.StockBatch, 0)
	for _, b := range r.s.batches {
		if b.ProductID == productID && b.Location.Equal(loc) && b.Status == entity.BatchStatusActive {
			out = append(out, *copyBatch(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.StockBatch, error) {
	defer r.s.lock(r.locked)()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, nil
	}
	return copyBatch(b), nil
}

func (r *BatchRepo) Create(ctx context.Context, batch *entity.StockBatch) error {
	defer r.s.lock(r.locked)()
	if batch.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, exists := r.s.batches[batch.ID]; exists {
		return domain.ErrDuplicate
	}
	cp := copyBatch(batch)
	if cp.Version == 0 {
		cp.Version = 1
	}
	r.s.batches[batch.ID] = cp
	batch.Version = cp.Version
	return nil
}

func (r *BatchRepo) ApplyDepletion(ctx context.Context, batchID string, qty decimal.Decimal, version int64) error {
	defer r.s.lock(r.locked)()
	b, ok := r.s.batches[batchID]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Version != version {
		return domain.ErrConcurrentModification
	}
	if qty.GreaterThan(b.RemainingQuantity) {
		return domain.ErrInsufficientBatchQuantity
	}
	b.RemainingQuantity = b.RemainingQuantity.Sub(qty)
	b.Version++
	if b.RemainingQuantity.IsZero() {
		b.Status = entity.BatchStatusDepleted
	}
	return nil
}

func (r *BatchRepo) MarkCancelled(ctx context.Context, batchID string) error {
	defer r.s.lock(r.locked)()
	b, ok := r.s.batches[batchID]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = entity.BatchStatusCancelled
	b.Version++
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// TransferRepo
// ──────────────────────────────────────────────────────────────────────────────

// TransferRepo adaptador en memoria de TransferRepository.
type TransferRepo struct {
	s      *Store
	locked bool
}

func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	defer r.s.lock(r.locked)()
	if t.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, exists := r.s.transfers[t.ID]; exists {
		return domain.ErrDuplicate
	}
	r.s.transfers[t.ID] = copyTransfer(t)
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	defer r.s.lock(r.locked)()
	t, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	return copyTransfer(t), nil
}

func (r *TransferRepo) MarkCancelled(ctx context.Context, id string) error {
	defer r.s.lock(r.locked)()
	t, ok := r.s.transfers[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = entity.TransferStatusCancelled
	return nil
}

func (r *TransferRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockTransfer, error) {
	defer r.s.lock(r.locked)()
	all := make([]*entity.StockTransfer, 0)
	for _, t := range r.s.transfers {
		if t.ProductID == productID {
			all = append(all, copyTransfer(t))
		}
	}
	return paginateTransfers(all, limit, offset), nil
}

func (r *TransferRepo) ListByLocation(ctx context.Context, loc entity.LocationRef, limit, offset int) ([]*entity.StockTransfer, error) {
	defer r.s.lock(r.locked)()
	all := make([]*entity.StockTransfer, 0)
	for _, t := range r.s.transfers {
		if t.From.Equal(loc) || t.To.Equal(loc) {
			all = append(all, copyTransfer(t))
		}
	}
	return paginateTransfers(all, limit, offset), nil
}

func paginateTransfers(all []*entity.StockTransfer, limit, offset int) []*entity.StockTransfer {
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

// paginate aplica offset y limit sobre una lista ya ordenada, con la misma
// semántica que LIMIT/OFFSET del adaptador pgx.
func paginate[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// ──────────────────────────────────────────────────────────────────────────────
// SaleDepletionRepo
// ──────────────────────────────────────────────────────────────────────────────

// SaleDepletionRepo adaptador en memoria de SaleDepletionRepository.
type SaleDepletionRepo struct {
	s      *Store
	locked bool
}

func (r *SaleDepletionRepo) Create(ctx context.Context, d *entity.SaleDepletion) error {
	defer r.s.lock(r.locked)()
	if d.ID == "" || d.SaleID == "" {
		return domain.ErrInvalidInput
	}
	if _, exists := r.s.depletions[d.ID]; exists {
		return domain.ErrDuplicate
	}
	if _, exists := r.s.bySaleID[d.SaleID]; exists {
		return domain.ErrDuplicate
	}
	cp := copyDepletion(d)
	if cp.Version == 0 {
		cp.Version = 1
	}
	r.s.depletions[d.ID] = cp
	r.s.bySaleID[d.SaleID] = d.ID
	d.Version = cp.Version
	return nil
}

func (r *SaleDepletionRepo) GetByID(ctx context.Context, id string) (*entity.SaleDepletion, error) {
	defer r.s.lock(r.locked)()
	d, ok := r.s.depletions[id]
	if !ok {
		return nil, nil
	}
	return copyDepletion(d), nil
}

func (r *SaleDepletionRepo) GetBySaleID(ctx context.Context, saleID string) (*entity.SaleDepletion, error) {
	defer r.s.lock(r.locked)()
	id, ok := r.s.bySaleID[saleID]
	if !ok {
		return nil, nil
	}
	return copyDepletion(r.s.depletions[id]), nil
}

func (r *SaleDepletionRepo) UpdateReversal(ctx context.Context, dep *entity.SaleDepletion) error {
	defer r.s.lock(r.locked)()
	cur, ok := r.s.depletions[dep.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != dep.Version {
		return domain.ErrConcurrentModification
	}
	cp := copyDepletion(dep)
	cp.Version = cur.Version + 1
	r.s.depletions[dep.ID] = cp
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ShopRepo / WarehouseRepo / ProductRepo
// ──────────────────────────────────────────────────────────────────────────────

// ShopRepo adaptador en memoria de ShopRepository.
type ShopRepo struct{ s *Store }

func (r *ShopRepo) Create(ctx context.Context, shop *entity.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if shop.ID == "" {
		return domain.ErrInvalidInput
	}
	cp := *shop
	r.s.shops[shop.ID] = &cp
	return nil
}

func (r *ShopRepo) GetByID(ctx context.Context, id string) (*entity.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shops[id]
	if !ok {
		return nil, nil
	}
	cp := *sh
	return &cp, nil
}

func (r *ShopRepo) Update(ctx context.Context, shop *entity.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shops[shop.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *shop
	r.s.shops[shop.ID] = &cp
	return nil
}

func (r *ShopRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Shop, 0)
	for _, sh := range r.s.shops {
		if sh.CompanyID == companyID {
			cp := *sh
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

// WarehouseRepo adaptador en memoria de WarehouseRepository.
type WarehouseRepo struct{ s *Store }

func (r *WarehouseRepo) Create(ctx context.Context, wh *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if wh.ID == "" {
		return domain.ErrInvalidInput
	}
	cp := *wh
	r.s.warehouses[wh.ID] = &cp
	return nil
}

func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wh, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *wh
	return &cp, nil
}

func (r *WarehouseRepo) Update(ctx context.Context, wh *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.warehouses[wh.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *wh
	r.s.warehouses[wh.ID] = &cp
	return nil
}

func (r *WarehouseRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Warehouse, 0)
	for _, wh := range r.s.warehouses {
		if wh.CompanyID == companyID {
			cp := *wh
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

// ProductRepo adaptador en memoria de ProductRepository.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		return domain.ErrInvalidInput
	}
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetByCompanyAndSKU(ctx context.Context, companyID, sku string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.CompanyID == companyID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Product, 0)
	for _, p := range r.s.products {
		if p.CompanyID == companyID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Copias profundas
// ──────────────────────────────────────────────────────────────────────────────

func copyBatch(b *entity.StockBatch) *entity.StockBatch {
	cp := *b
	return &cp
}

func copyTransfer(t *entity.StockTransfer) *entity.StockTransfer {
	cp := *t
	cp.ConsumedBatches = append([]entity.BatchDraw(nil), t.ConsumedBatches...)
	cp.CreatedBatchIDs = append([]string(nil), t.CreatedBatchIDs...)
	return &cp
}

func copyDepletion(d *entity.SaleDepletion) *entity.SaleDepletion {
	cp := *d
	cp.Lines = make([]entity.SaleLineDepletion, len(d.Lines))
	for i, l := range d.Lines {
		cl := l
		cl.Draws = append([]entity.BatchDraw(nil), l.Draws...)
		cp.Lines[i] = cl
	}
	return &cp
}
