package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stripe/stripe-go/v83"

	"tienda_perfumes/internal/cache"
	"tienda_perfumes/internal/checkout"
	"tienda_perfumes/internal/config"
	"tienda_perfumes/internal/database"
	"tienda_perfumes/internal/events"
	"tienda_perfumes/internal/handlers"
	"tienda_perfumes/internal/middleware"
	"tienda_perfumes/internal/notification"
	"tienda_perfumes/internal/payment"
	"tienda_perfumes/internal/repository"
	"tienda_perfumes/internal/routes"
	"tienda_perfumes/internal/search"
	"tienda_perfumes/internal/storage"
	"tienda_perfumes/internal/utils"
)

type stores struct {
	catalog       repository.CatalogRepository
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("❌ Base de données: %v", err)
	}
	defer st.close()

	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		// GetPerfume passe par Redis, la lecture du stock au checkout reste directe
		st.catalog = cache.NewCatalog(st.catalog, rdb)
	}

	engine, err := openSearch(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	uploader, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	gateway := openGateway(cfg)

	// Fan-out des notifications
	var pusher notification.Pusher
	var subscriber notification.Subscriber
	if rdb != nil {
		rp := notification.NewRedisPusher(rdb)
		pusher, subscriber = rp, rp
	} else {
		hub := notification.NewHub()
		pusher, subscriber = hub, hub
	}
	opts := []notification.Option{notification.WithPusher(pusher)}
	if mailer := notification.NewSMTPMailer(cfg.SMTP); mailer != nil {
		opts = append(opts, notification.WithMailer(mailer))
		log.Println("✅ SMTP configuré :", cfg.SMTP.Host)
	}
	fanout := notification.NewFanout(st.notifications, opts...)

	publisher, waitBus := startBus(ctx, cfg, fanout.Handle)

	svc := checkout.NewService(checkout.Deps{
		Catalog:           st.catalog,
		Orders:            st.orders,
		Payments:          st.payments,
		Gateway:           gateway,
		Publisher:         publisher,
		Calculator:        checkout.NewCalculator(cfg.Tax(), cfg.Shipping()),
		LowStockThreshold: cfg.LowStockThreshold,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = cache.NewCounter(rdb)
	}

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:          cfg.JWTSecret,
		Limiter:            limiter,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Metrics:            middleware.NewMetrics(reg),
		Gatherer:           reg,
		Auth:               handlers.NewAuthHandler(st.users, utils.NewPasswordHasher(cfg.Argon2), cfg.JWTSecret, cfg.JWTTTL),
		Checkout:           handlers.NewCheckoutHandler(svc),
		Orders:             handlers.NewOrderHandler(svc),
		Payments:           handlers.NewPaymentHandler(svc),
		Perfumes:           handlers.NewPerfumeHandler(st.catalog, engine, uploader),
		Notifications:      handlers.NewNotificationHandler(st.notifications, subscriber),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Println("🚀 Serveur Tienda Perfumes lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt HTTP forcé: %v", err)
	}
	waitBus()
	log.Println("👋 Serveur arrêté")
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver != "scylla" {
		log.Println("⚠️ STORE_DRIVER=memory — données perdues au redémarrage")
		return &stores{
			catalog:       repository.NewMemoryCatalog(),
			orders:        repository.NewMemoryOrders(),
			payments:      repository.NewMemoryPayments(),
			notifications: repository.NewMemoryNotifications(),
			users:         repository.NewMemoryUsers(),
			close:         func() {},
		}, nil
	}

	sm, err := database.NewScyllaManager(cfg.Scylla)
	if err != nil {
		return nil, err
	}
	if cfg.Scylla.CreateSchema {
		if err := sm.EnsureSchema(cfg.Scylla); err != nil {
			sm.Close()
			return nil, err
		}
		log.Println("✅ Schéma ScyllaDB vérifié")
	}

	products, err := sm.GetSession(cfg.Scylla.ProductsKeyspace)
	if err != nil {
		sm.Close()
		return nil, err
	}
	users, err := sm.GetSession(cfg.Scylla.UsersKeyspace)
	if err != nil {
		sm.Close()
		return nil, err
	}
	orders, err := sm.GetSession(cfg.Scylla.OrdersKeyspace)
	if err != nil {
		sm.Close()
		return nil, err
	}

	return &stores{
		catalog:       repository.NewScyllaCatalog(products),
		orders:        repository.NewScyllaOrders(orders),
		payments:      repository.NewScyllaPayments(orders),
		notifications: repository.NewScyllaNotifications(users),
		users:         repository.NewScyllaUsers(users),
		close:         sm.Close,
	}, nil
}

// openSearch renvoie un Engine nil quand Elasticsearch n'est pas configuré.
func openSearch(cfg *config.Config) (search.Engine, error) {
	client, err := database.ConnectElastic(cfg.Elastic)
	if err != nil || client == nil {
		return nil, err
	}
	return search.NewElastic(client, cfg.Elastic.Index), nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	client, err := database.ConnectMinIO(ctx, cfg.MinIO)
	if err != nil || client == nil {
		return nil, err
	}
	return storage.NewMinIO(client, cfg.MinIO), nil
}

func openGateway(cfg *config.Config) payment.Gateway {
	if cfg.PaymentProvider == "stripe" {
		if cfg.StripeSecretKey == "" {
			log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
		}
		stripe.Key = cfg.StripeSecretKey
		log.Println("✅ Stripe initialisé")
		return payment.NewStripeGateway(cfg.BaseURL, cfg.Currency)
	}
	log.Println("💳 Passerelle de paiement simulée")
	return payment.NewMockGateway(payment.NewMemoryIntentStore(), cfg.BaseURL, cfg.Currency)
}

// startBus branche le fan-out derrière le bus choisi. La fonction renvoyée attend
// que les événements en file soient traités.
func startBus(ctx context.Context, cfg *config.Config, h events.Handler) (events.Publisher, func()) {
	if cfg.EventBus == "kafka" && len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, 0)
		pub.Start(ctx)

		consumer := events.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Group, cfg.Kafka.Topic, 4)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := consumer.Run(ctx, h); err != nil {
				log.Printf("❌ Consommateur Kafka: %v", err)
			}
		}()
		log.Println("✅ Bus d'événements Kafka :", cfg.Kafka.Topic)
		return pub, func() {
			pub.Wait()
			<-done
		}
	}

	bus := events.NewLocalBus(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Le bus local se vide après Close, indépendamment du contexte du serveur.
		bus.Run(context.Background(), h)
	}()
	log.Println("✅ Bus d'événements local")
	return bus, func() {
		bus.Close()
		<-done
	}
}
