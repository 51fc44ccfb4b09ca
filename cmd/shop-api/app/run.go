package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/aq2208/gorder-shop/configs"
	"github.com/aq2208/gorder-shop/internal/adapter/cache"
	"github.com/aq2208/gorder-shop/internal/adapter/http"
	"github.com/aq2208/gorder-shop/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-shop/internal/adapter/kafka"
	"github.com/aq2208/gorder-shop/internal/adapter/observ"
	"github.com/aq2208/gorder-shop/internal/adapter/queue"
	"github.com/aq2208/gorder-shop/internal/adapter/repo"
	"github.com/aq2208/gorder-shop/internal/adapter/storage"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/usecase"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Server *nethttp.Server

	// stoppers run in order on shutdown; consumers first, connections last.
	stoppers []stopper
}

type stopper struct {
	name string
	fn   func(ctx context.Context) error
}

func (a *App) onStop(name string, fn func(ctx context.Context) error) {
	a.stoppers = append(a.stoppers, stopper{name: name, fn: fn})
}

// Stop drains the HTTP server, then releases every backend that was opened.
func (a *App) Stop(ctx context.Context) error {
	l := logging.New("shutdown")
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	for _, s := range a.stoppers {
		if err := s.fn(ctx); err != nil {
			l.Error("stop failed", "component", s.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		l.Info("stopped", "component", s.name)
	}
	return errors.Join(errs...)
}

// stores is the persistence side chosen by storage.driver.
type stores struct {
	tx       usecase.TxRunner
	products usecase.ProductRepo
	orders   usecase.OrderRepo
	users    usecase.UserRepo
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (a *App, err error) {
	l := logging.New("bootstrap")
	a = &App{}
	// Anything opened before a failure is released again.
	defer func() {
		if err != nil {
			_ = a.Stop(context.Background())
		}
	}()

	st, err := openStores(ctx, cfg, a)
	if err != nil {
		return a, err
	}

	// optional: redis
	var (
		idem   usecase.IdempotencyStore
		pcache usecase.ProductCache
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onStop("redis", func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return a, fmt.Errorf("redis ping: %w", err)
		}
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		pcache = cache.NewRedisCache(rdb, cfg.Cache.TTL)
		l.Info("redis enabled", "addr", cfg.Redis.Addr)
	}

	// optional: rabbitmq events + notification consumer
	var events usecase.EventPublisher
	if cfg.Rabbit.URL != "" {
		producer, err := setupRabbit(cfg, a)
		if err != nil {
			return a, err
		}
		events = producer
		l.Info("rabbitmq enabled", "exchange", cfg.Rabbit.Exchange)
	}

	images, err := storage.NewLocalImageStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return a, err
	}
	metrics := observ.NewOrderMetrics(prometheus.DefaultRegisterer)

	// use cases
	inv := usecase.NewInventory(st.products, pcache, metrics)
	placeUC := usecase.NewPlaceOrder(st.tx, st.orders, inv, idem, events, metrics)
	cancelUC := usecase.NewCancelOrder(st.tx, st.orders, inv, events, metrics)
	statusUC := usecase.NewSetOrderStatus(st.orders, events)
	queries := usecase.NewOrderQueries(st.orders)
	catalog := usecase.NewCatalog(st.tx, st.products, st.orders, images, pcache)
	accounts := usecase.NewAccounts(st.tx, st.users, st.orders, inv, metrics)

	// optional: kafka fulfilment updates
	if len(cfg.Kafka.Brokers) > 0 {
		if err := setupKafkaListener(cfg, statusUC, a); err != nil {
			return a, err
		}
		l.Info("kafka enabled", "topic", cfg.Kafka.Topic)
	}

	// init handlers + routers + middleware
	authz := middleware.NewAuthz(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience, cfg.Security.TTL)
	router := http.NewRouter(http.Handlers{
		Orders:   http.NewOrderHandler(placeUC, cancelUC, statusUC, queries),
		Products: http.NewProductHandler(catalog),
		Users:    http.NewUserHandler(accounts),
		Admin:    http.NewAdminHandler(http.AdminAccount{Email: cfg.Admin.Email, Password: cfg.Admin.Password}, authz),
	}, authz, images.Dir(), cfg.Uploads.MaxBytes)

	a.Server = &nethttp.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

func openStores(ctx context.Context, cfg configs.Config, a *App) (stores, error) {
	if cfg.Storage.Driver == "memory" {
		mem := repo.NewMemoryStore()
		logging.New("bootstrap").Warn("using in-memory storage; data is lost on restart")
		return stores{tx: mem, products: mem.Products(), orders: mem.Orders(), users: mem.Users()}, nil
	}

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return stores{}, err
	}
	a.onStop("mysql", func(context.Context) error { return db.Close() })
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return stores{}, fmt.Errorf("mysql ping: %w", err)
	}
	if cfg.MySQL.Migrate {
		if err := repo.Migrate(pingCtx, db); err != nil {
			return stores{}, err
		}
	}

	return stores{
		tx:       repo.NewMySQLTxRunner(db),
		products: repo.NewMySQLProductRepo(db),
		orders:   repo.NewMySQLOrderRepo(db),
		users:    repo.NewMySQLUserRepo(db),
	}, nil
}

// setupRabbit opens one channel for publishing with confirms and another for the
// notification consumer.
func setupRabbit(cfg configs.Config, a *App) (*queue.RabbitProducer, error) {
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	a.onStop("rabbitmq", func(context.Context) error { return conn.Close() })

	pubCh, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	producer, err := queue.NewRabbitProducer(pubCh, cfg.Rabbit.Exchange, cfg.Rabbit.NotifyQueue)
	if err != nil {
		return nil, err
	}

	subCh, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	notifyQueue := cfg.Rabbit.NotifyQueue
	if notifyQueue == "" {
		notifyQueue = queue.DefaultNotifyQueue
	}
	h := queue.NewOrderNotificationHandler(queue.LogNotifier{})
	router := queue.NewRouter(subCh, queue.WithPrefetch(cfg.Rabbit.Prefetch))
	router.Register(notifyQueue, queue.JSONHandler[usecase.OrderEventMsg]{HandleFunc: h.HandleEvent})
	if err := router.Start(); err != nil {
		return nil, err
	}
	// consumers stop before the connection closes
	a.stoppers = append([]stopper{{name: "rabbitmq-consumers", fn: func(context.Context) error { return router.Stop() }}}, a.stoppers...)
	return producer, nil
}

func setupKafkaListener(cfg configs.Config, status *usecase.SetOrderStatus, a *App) error {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return fmt.Errorf("kafka group: %w", err)
	}

	h := kafka.NewFulfilmentStatusHandler(status)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			consumer.Logger.Error("kafka consumer stopped", "err", err)
		}
	}()

	a.stoppers = append([]stopper{{name: "kafka", fn: func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
		case <-stopCtx.Done():
		}
		return consumer.Close()
	}}}, a.stoppers...)
	return nil
}
