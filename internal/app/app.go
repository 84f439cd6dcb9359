package app

import (
	"context"
	"time"

	coretelegram "cambiobot/core/telegram"
	"cambiobot/core/telegram/router"
	tgsender "cambiobot/core/telegram/sender"

	"cambiobot/core/bootstrap"
	"cambiobot/internal/broadcast"
	"cambiobot/internal/config"
	"cambiobot/internal/flows"
	"cambiobot/internal/proof"
	"cambiobot/internal/rates"
	"cambiobot/internal/session"
	"cambiobot/internal/storage"

	"github.com/jmoiron/sqlx"
)

// App holds the wired exchange bot: storage, flows, and broadcast plumbing.
type App struct {
	cfg *config.AppConfig
	db  *sqlx.DB

	sessions session.Store
	gateway  *botGateway
	engine   *flows.Engine

	users        *storage.UserRepo
	methods      *storage.MethodRepo
	transactions *storage.TxRepo

	controller *broadcast.Controller
}

// Bootstrap initializes infrastructure and wires the application together.
func Bootstrap(cfg *config.AppConfig) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	a := &App{
		cfg:          cfg,
		db:           res.DB,
		sessions:     sessions,
		gateway:      newBotGateway(cfg.Proof.DownloadDir),
		users:        storage.NewUserRepo(res.DB),
		methods:      storage.NewMethodRepo(res.DB),
		transactions: storage.NewTxRepo(res.DB),
	}

	a.engine = flows.NewEngine(sessions)
	a.engine.Register(flows.NewRegisterFlow(a.users, a.gateway))
	a.engine.Register(flows.NewExchangeFlow(
		rates.NewHTTPProvider(cfg.Exchange.RateURL),
		buildResolver(cfg),
		a.gateway,
		a.methods,
		a.transactions,
		a.gateway,
		flows.PaymentInstructions{
			PagoMovil: cfg.Exchange.PagoMovil,
			Wallet:    cfg.Exchange.Wallet,
			WhatsApp:  cfg.Exchange.WhatsApp,
		},
	))
	a.engine.Register(flows.NewMethodsFlow(a.methods, a.gateway))

	dispatcher := broadcast.NewDispatcher(a.users, a.gateway,
		time.Duration(cfg.Broadcast.DelayMS)*time.Millisecond)
	a.controller = broadcast.NewController(cfg.Core.Telegram.AdminID, sessions, dispatcher)

	return a, nil
}

func buildSessionStore(cfg *config.AppConfig) (session.Store, error) {
	if cfg.Redis.Addr == "" {
		return session.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return session.NewRedisStore(ctx, session.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      time.Duration(cfg.Redis.TTLMinutes) * time.Minute,
	})
}

func buildResolver(cfg *config.AppConfig) proof.Resolver {
	if cfg.Proof.OCRURL == "" {
		return proof.Unavailable{}
	}
	return proof.NewOCRResolver(cfg.Proof.OCRURL, cfg.Proof.OCRAPIKey)
}

// TelegramRunOptions assembles the bot runtime: registry, middleware chain,
// and message routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)

	adminID := a.cfg.Core.Telegram.AdminID
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: a.adminReject,
	})
	routes = append(routes, router.MessageRoutes(a.flowRouter(), reg, router.MessageOptions{
		AdminID:        adminID,
		OnAdminReject:  a.adminReject,
		InterceptText:  a.interceptBroadcastText,
		InterceptPhoto: a.interceptBroadcastPhoto,
	})...)

	opts := coretelegram.RunOptions{
		Config:            a.cfg.CoreConfig(),
		Registry:          reg,
		Middlewares:       coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:            routes,
		DispatcherOptions: tgsender.Options{},
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.gateway.attach(rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			return a.Close()
		},
	}
	return opts, nil
}

// Close releases infrastructure owned by the app.
func (a *App) Close() error {
	var err error
	if closer, ok := a.sessions.(interface{ Close() error }); ok {
		err = closer.Close()
	}
	if dbErr := a.db.Close(); dbErr != nil && err == nil {
		err = dbErr
	}
	return err
}
