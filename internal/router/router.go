package router

import (
	"time"

	"tienda/internal/config"
	"tienda/internal/handler"
	"tienda/internal/infra"
	"tienda/internal/middleware"
	"tienda/internal/repository"
	"tienda/internal/service"
	"tienda/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App is the wired application. The composition root starts the background
// loops from it and flushes the carts on shutdown.
type App struct {
	Engine      *gin.Engine
	Carrito     service.CarritoService
	Inactividad service.InactividadService
	Dispatcher  *worker.Dispatcher
	Processors  map[string]worker.Processor
	Limiters    []*middleware.IPLimiter
}

// New wires all dependencies and returns the configured application.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, distanciaCB *infra.CircuitBreaker) *App {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	apiLimiter := middleware.APIRateLimiter(1000, time.Minute) // 1000 req/min per IP
	loginLimiter := middleware.LoginRateLimiter()

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Infrastructure ───────────────────────────────────────────────────────
	distanciaClient := infra.NewDistanciaClient(cfg.DistanciaURL, cfg.DistanciaOrigenZip)
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	tx := repository.NewTransactor(db)
	productoRepo := repository.NewProductoRepository(db)
	movimientoRepo := repository.NewMovimientoStockRepository(db)
	usuarioRepo := repository.NewStoreUserRepository(db)
	ordenRepo := repository.NewOrdenRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	guestRepo := repository.NewGuestCartRepository(rdb)
	actividadRepo := repository.NewActividadRepository(rdb)
	revocacionRepo := repository.NewRevocacionRepository(rdb)
	distCacheRepo := repository.NewDistanciaCacheRepository(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	stockSvc := service.NewStockService(tx, productoRepo, movimientoRepo)
	carritoSvc := service.NewCarritoService(stockSvc, productoRepo, usuarioRepo, guestRepo, cfg.CartSaveDebounce)
	reconciliador := service.NewReconciliador(carritoSvc, usuarioRepo, guestRepo)
	authSvc := service.NewAuthService(usuarioRepo, revocacionRepo, actividadRepo, carritoSvc, reconciliador, cfg)
	inactividadSvc := service.NewInactividadService(actividadRepo, carritoSvc, authSvc, cfg.InactividadTimeout)
	promoSvc := service.NewPromoService(promoRepo, carritoSvc)
	envioSvc := service.NewEnvioService(distanciaClient, distCacheRepo, distanciaCB)
	checkoutSvc := service.NewCheckoutService(tx, ordenRepo, productoRepo, promoRepo, movimientoRepo, carritoSvc, envioSvc, dispatcher)
	productoSvc := service.NewProductoService(productoRepo, movimientoRepo, stockSvc)
	favoritosSvc := service.NewFavoritosService(usuarioRepo, productoRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	carritoH := handler.NewCarritoHandler(carritoSvc, promoSvc)
	pedidosH := handler.NewPedidosHandler(checkoutSvc, envioSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	favoritosH := handler.NewFavoritosHandler(favoritosSvc)
	adminH := handler.NewAdminHandler(dispatcher.DeadLetters())

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, distanciaCB))

	// Every /v1 request is owned by an identity (valid token) or a guest session.
	v1 := r.Group("/v1", middleware.OptionalJWT(cfg.JWTSecret, revocacionRepo), middleware.Owner())

	auth := v1.Group("/auth")
	{
		auth.POST("/registro", loginLimiter.Middleware(), authH.Registro)
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/logout", middleware.RequireAuth(), authH.Logout)
		auth.GET("/perfil", middleware.RequireAuth(), authH.Perfil)
	}

	v1.GET("/productos/:id", productosH.ObtenerPorID)
	v1.GET("/productos/:id/stock", productosH.Stock)
	v1.GET("/envio/cotizar", pedidosH.CotizarEnvio)

	// Storefront interactions count as activity of the owner.
	tienda := v1.Group("", middleware.Actividad(inactividadSvc))
	{
		tienda.POST("/actividad", handler.Actividad)

		carrito := tienda.Group("/carrito")
		{
			carrito.GET("", carritoH.Obtener)
			carrito.POST("/items", carritoH.AgregarItem)
			carrito.PATCH("/items", carritoH.ActualizarCantidad)
			carrito.DELETE("/items", carritoH.EliminarItem)
			carrito.DELETE("", carritoH.Vaciar)
			carrito.POST("/promo", carritoH.AplicarPromo)
			carrito.DELETE("/promo", carritoH.QuitarPromo)
		}

		cuenta := tienda.Group("", middleware.RequireAuth())
		{
			cuenta.POST("/pedidos", pedidosH.Realizar)
			cuenta.GET("/pedidos", pedidosH.Listar)
			cuenta.GET("/favoritos", favoritosH.Listar)
			cuenta.POST("/favoritos", favoritosH.Alternar)
		}
	}

	admin := v1.Group("/admin", middleware.RequireAuth(), middleware.RequireRole("admin"))
	{
		admin.GET("/movimientos", productosH.ListarMovimientos)
		admin.PATCH("/productos/:id/destacado", productosH.SetDestacado)
		admin.GET("/dlq/:queue", adminH.ListarDLQ)
		admin.POST("/dlq/:queue/reintentar", adminH.ReintentarDLQ)
	}

	// Swagger UI outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &App{
		Engine:      r,
		Carrito:     carritoSvc,
		Inactividad: inactividadSvc,
		Dispatcher:  dispatcher,
		Processors: map[string]worker.Processor{
			worker.JobConfirmacion: worker.NewConfirmacionWorker(ordenRepo, dispatcher, cfg.NombreTienda, cfg.PDFStoragePath),
			worker.JobEmail:        worker.NewEmailWorker(mailer),
		},
		Limiters: []*middleware.IPLimiter{apiLimiter, loginLimiter},
	}
}
