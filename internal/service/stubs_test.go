package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tienda/internal/model"
	"tienda/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory database shared by the GORM-backed repository stubs ────────────

type slotID struct{ producto, size string }

type memState struct {
	productos map[string]model.Producto
	slots     map[slotID]model.StockSlot
	movs      []model.MovimientoStock
	ordenes   map[string]model.Orden
	contador  map[uuid.UUID]int
	promos    map[uuid.UUID]model.PromoCode
	usuarios  map[uuid.UUID]model.StoreUser
}

func (s memState) clone() memState {
	out := memState{
		productos: make(map[string]model.Producto, len(s.productos)),
		slots:     make(map[slotID]model.StockSlot, len(s.slots)),
		movs:      append([]model.MovimientoStock(nil), s.movs...),
		ordenes:   make(map[string]model.Orden, len(s.ordenes)),
		contador:  make(map[uuid.UUID]int, len(s.contador)),
		promos:    make(map[uuid.UUID]model.PromoCode, len(s.promos)),
		usuarios:  make(map[uuid.UUID]model.StoreUser, len(s.usuarios)),
	}
	for k, v := range s.productos {
		out.productos[k] = v
	}
	for k, v := range s.slots {
		out.slots[k] = v
	}
	for k, v := range s.ordenes {
		out.ordenes[k] = v
	}
	for k, v := range s.contador {
		out.contador[k] = v
	}
	for k, v := range s.promos {
		out.promos[k] = v
	}
	for k, v := range s.usuarios {
		u := v
		u.Cart = v.Cart.Clone()
		out.usuarios[k] = u
	}
	return out
}

// memDB mimics Postgres closely enough for the service layer: conditional
// updates are atomic and Transaction rolls every change back on error.
type memDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state memState

	// fail makes the named operation return the error.
	fail map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		state: memState{
			productos: map[string]model.Producto{},
			slots:     map[slotID]model.StockSlot{},
			ordenes:   map[string]model.Orden{},
			contador:  map[uuid.UUID]int{},
			promos:    map[uuid.UUID]model.PromoCode{},
			usuarios:  map[uuid.UUID]model.StoreUser{},
		},
		fail: map[string]error{},
	}
}

func (db *memDB) failing(op string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.fail[op]
}

func (db *memDB) setFail(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.fail, op)
		return
	}
	db.fail[op] = err
}

// Transaction serializes transactions and restores the snapshot on error.
func (db *memDB) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snap := db.state.clone()
	db.mu.Unlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.state = snap
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *memDB) addProducto(p model.Producto, stock map[string]int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p.Activo = true
	p.Slots = nil
	db.state.productos[p.ID] = p
	for size, n := range stock {
		db.state.slots[slotID{p.ID, size}] = model.StockSlot{ProductoID: p.ID, SizeKey: size, Disponible: n}
	}
}

func (db *memDB) slot(productoID, size string) model.StockSlot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.slots[slotID{productoID, size}]
}

func (db *memDB) movimientos() []model.MovimientoStock {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]model.MovimientoStock(nil), db.state.movs...)
}

func (db *memDB) numOrdenes() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.ordenes)
}

var _ repository.Transactor = (*memDB)(nil)

// ── ProductoRepository ───────────────────────────────────────────────────────

type stubProductoRepo struct{ db *memDB }

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.db.addProducto(*p, nil)
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id string) (*model.Producto, error) {
	if err := r.db.failing("FindProducto"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.state.productos[id]
	if !ok || !p.Activo {
		return nil, gorm.ErrRecordNotFound
	}
	p.Slots = nil
	for k, s := range r.db.state.slots {
		if k.producto == id {
			p.Slots = append(p.Slots, s)
		}
	}
	sort.Slice(p.Slots, func(i, j int) bool { return p.Slots[i].SizeKey < p.Slots[j].SizeKey })
	return &p, nil
}

func (r *stubProductoRepo) FindSlot(_ context.Context, productoID, sizeKey string) (*model.StockSlot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.state.slots[slotID{productoID, sizeKey}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *stubProductoRepo) UpsertSlot(_ context.Context, s *model.StockSlot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.state.slots[slotID{s.ProductoID, s.SizeKey}] = *s
	return nil
}

func (r *stubProductoRepo) ReservarTx(_ context.Context, _ *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error) {
	if err := r.db.failing("Reservar:" + sizeKey); err != nil {
		return false, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id := slotID{productoID, sizeKey}
	s, ok := r.db.state.slots[id]
	if !ok || s.Disponible < cantidad {
		return false, nil
	}
	s.Disponible -= cantidad
	s.Reservado += cantidad
	r.db.state.slots[id] = s
	return true, nil
}

func (r *stubProductoRepo) LiberarTx(_ context.Context, _ *gorm.DB, productoID, sizeKey string, cantidad int) (int, error) {
	if err := r.db.failing("Liberar:" + sizeKey); err != nil {
		return 0, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id := slotID{productoID, sizeKey}
	s, ok := r.db.state.slots[id]
	if !ok {
		return 0, nil
	}
	n := min(cantidad, s.Reservado)
	s.Disponible += n
	s.Reservado -= n
	r.db.state.slots[id] = s
	return n, nil
}

func (r *stubProductoRepo) ConsumirReservaTx(_ context.Context, _ *gorm.DB, productoID, sizeKey string, cantidad int) (bool, error) {
	if err := r.db.failing("Consumir:" + sizeKey); err != nil {
		return false, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id := slotID{productoID, sizeKey}
	s, ok := r.db.state.slots[id]
	if !ok || s.Reservado < cantidad {
		return false, nil
	}
	s.Reservado -= cantidad
	r.db.state.slots[id] = s
	return true, nil
}

func (r *stubProductoRepo) SetDestacado(_ context.Context, id string, destacado bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.state.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Destacado = destacado
	r.db.state.productos[id] = p
	return nil
}

// ── MovimientoStockRepository ────────────────────────────────────────────────

type stubMovimientoRepo struct{ db *memDB }

func (r *stubMovimientoRepo) CreateTx(_ context.Context, _ *gorm.DB, m *model.MovimientoStock) error {
	if err := r.db.failing("CreateMovimiento"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.CreatedAt = time.Now()
	r.db.state.movs = append(r.db.state.movs, *m)
	return nil
}

func (r *stubMovimientoRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.db.state.movs {
		if (f.ProductoID == "" || m.ProductoID == f.ProductoID) &&
			(f.Tipo == "" || m.Tipo == f.Tipo) &&
			(f.Referencia == "" || m.Referencia == f.Referencia) {
			out = append(out, m)
		}
	}
	total := int64(len(out))
	start := (f.Page - 1) * f.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

// ── OrdenRepository ──────────────────────────────────────────────────────────

type stubOrdenRepo struct{ db *memDB }

func (r *stubOrdenRepo) NextNumeroTx(_ context.Context, _ *gorm.DB, usuarioID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.state.contador[usuarioID]++
	return r.db.state.contador[usuarioID], nil
}

func (r *stubOrdenRepo) CreateTx(_ context.Context, _ *gorm.DB, o *model.Orden) error {
	if err := r.db.failing("CreateOrden"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o.CreatedAt = time.Now()
	r.db.state.ordenes[o.ID] = *o
	return nil
}

func (r *stubOrdenRepo) FindByID(_ context.Context, id string) (*model.Orden, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.state.ordenes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r *stubOrdenRepo) ListByUsuario(_ context.Context, usuarioID uuid.UUID) ([]model.Orden, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Orden
	for _, o := range r.db.state.ordenes {
		if o.UsuarioID == usuarioID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero > out[j].Numero })
	return out, nil
}

func (r *stubOrdenRepo) MarcarConfirmado(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.state.ordenes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Confirmado = true
	r.db.state.ordenes[id] = o
	return nil
}

// ── PromoRepository ──────────────────────────────────────────────────────────

type stubPromoRepo struct{ db *memDB }

func (r *stubPromoRepo) Create(_ context.Context, p *model.PromoCode) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.db.state.promos[p.ID] = *p
	return nil
}

func (r *stubPromoRepo) FindActiveByCode(_ context.Context, code string) (*model.PromoCode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.state.promos {
		if p.Code == code && p.Active {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPromoRepo) IncrementUsageTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.state.promos[id]
	if !ok || !p.Aplicable() {
		return false, nil
	}
	p.UsageCount++
	r.db.state.promos[id] = p
	return true, nil
}

func (db *memDB) promo(id uuid.UUID) model.PromoCode {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.promos[id]
}

// ── StoreUserRepository ──────────────────────────────────────────────────────

type stubUsuarioRepo struct {
	db *memDB

	mu    sync.Mutex
	saves int
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.StoreUser) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.state.usuarios {
		if e.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.state.usuarios[u.ID] = *u
	return nil
}

func (r *stubUsuarioRepo) FindByEmail(_ context.Context, email string) (*model.StoreUser, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.state.usuarios {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StoreUser, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *stubUsuarioRepo) GetCart(_ context.Context, id uuid.UUID) (model.CartState, error) {
	if err := r.db.failing("GetCart"); err != nil {
		return model.CartState{}, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.usuarios[id]
	if !ok {
		return model.CartState{}, gorm.ErrRecordNotFound
	}
	return u.Cart.Clone(), nil
}

func (r *stubUsuarioRepo) SaveCart(_ context.Context, id uuid.UUID, cart model.CartState) error {
	if err := r.db.failing("SaveCart"); err != nil {
		return err
	}
	r.mu.Lock()
	r.saves++
	r.mu.Unlock()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Cart = cart.Clone()
	r.db.state.usuarios[id] = u
	return nil
}

func (r *stubUsuarioRepo) SaveMergedCart(ctx context.Context, id uuid.UUID, cart model.CartState, at time.Time) error {
	if err := r.db.failing("SaveMergedCart"); err != nil {
		return err
	}
	if err := r.SaveCart(ctx, id, cart); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := r.db.state.usuarios[id]
	u.MergedAt = &at
	r.db.state.usuarios[id] = u
	return nil
}

func (r *stubUsuarioRepo) UpdateFavoritos(_ context.Context, id uuid.UUID, favs []model.Favorito) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.state.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Favoritos = append([]model.Favorito(nil), favs...)
	r.db.state.usuarios[id] = u
	return nil
}

func (r *stubUsuarioRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (db *memDB) addUsuario(cart model.CartState) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.state.usuarios[id] = model.StoreUser{ID: id, Email: id.String() + "@test.local", Nombre: "Test", Rol: "customer", Cart: cart}
	return id
}

func (db *memDB) remoteCart(id uuid.UUID) model.CartState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.usuarios[id].Cart.Clone()
}

// ── Redis-backed repository stubs ────────────────────────────────────────────

type stubGuestRepo struct {
	mu      sync.Mutex
	carts   map[uuid.UUID]model.CartState
	saveErr error
}

func newStubGuestRepo() *stubGuestRepo {
	return &stubGuestRepo{carts: map[uuid.UUID]model.CartState{}}
}

func (r *stubGuestRepo) Get(_ context.Context, id uuid.UUID) (model.CartState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts[id].Clone(), nil
}

func (r *stubGuestRepo) Save(_ context.Context, id uuid.UUID, cart model.CartState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.carts[id] = cart.Clone()
	return nil
}

func (r *stubGuestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, id)
	return nil
}

func (r *stubGuestRepo) has(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.carts[id]
	return ok
}

type stubActividadRepo struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newStubActividadRepo() *stubActividadRepo {
	return &stubActividadRepo{last: map[string]time.Time{}}
}

func (r *stubActividadRepo) Touch(_ context.Context, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[key] = at
	return nil
}

func (r *stubActividadRepo) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, key)
	return nil
}

func (r *stubActividadRepo) Get(_ context.Context, key string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.last[key]
	return t, ok, nil
}

func (r *stubActividadRepo) Inactivos(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k, t := range r.last {
		if !t.After(cutoff) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

type stubRevocacionRepo struct {
	mu    sync.Mutex
	desde map[uuid.UUID]time.Time
}

func (r *stubRevocacionRepo) Revocar(_ context.Context, id uuid.UUID, at time.Time, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.desde == nil {
		r.desde = map[uuid.UUID]time.Time{}
	}
	r.desde[id] = at
	return nil
}

func (r *stubRevocacionRepo) RevocadoDesde(_ context.Context, id uuid.UUID) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desde[id], nil
}

type stubDistanciaCache struct {
	mu  sync.Mutex
	km  map[string]float64
	err error
}

func (c *stubDistanciaCache) Get(_ context.Context, origen, zip string) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	km, ok := c.km[origen+":"+zip]
	return km, ok, nil
}

func (c *stubDistanciaCache) Set(_ context.Context, origen, zip string, km float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.km == nil {
		c.km = map[string]float64{}
	}
	c.km[origen+":"+zip] = km
	return nil
}

var errBoom = errors.New("boom")

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	db          *memDB
	productos   *stubProductoRepo
	movimientos *stubMovimientoRepo
	ordenes     *stubOrdenRepo
	promos      *stubPromoRepo
	usuarios    *stubUsuarioRepo
	invitados   *stubGuestRepo
	stock       StockService
	carrito     CarritoService
}

func newFixture(debounce time.Duration) *fixture {
	db := newMemDB()
	f := &fixture{
		db:          db,
		productos:   &stubProductoRepo{db: db},
		movimientos: &stubMovimientoRepo{db: db},
		ordenes:     &stubOrdenRepo{db: db},
		promos:      &stubPromoRepo{db: db},
		usuarios:    &stubUsuarioRepo{db: db},
		invitados:   newStubGuestRepo(),
	}
	f.stock = NewStockService(db, f.productos, f.movimientos)
	f.carrito = NewCarritoService(f.stock, f.productos, f.usuarios, f.invitados, debounce)
	return f
}
