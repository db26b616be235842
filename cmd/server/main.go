package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/conteo/inventory-admin/app/catalog"
	"github.com/conteo/inventory-admin/app/form"
	"github.com/conteo/inventory-admin/app/logging"
	"github.com/conteo/inventory-admin/app/previews"
	"github.com/conteo/inventory-admin/app/products"
	"github.com/conteo/inventory-admin/app/screen"
	"github.com/conteo/inventory-admin/config"
	"github.com/conteo/inventory-admin/models"
	"github.com/conteo/inventory-admin/storage"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var cfile = flag.String("c", "", "config file")

func main() {
	flag.Parse()

	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(*cfile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.Init(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	if envErr != nil {
		zap.S().Info("no .env file loaded, using the process environment")
	}

	if err := run(cfg); err != nil {
		zap.S().Fatalf("server stopped: %v", err)
	}
}

func run(cfg *config.AppConfig) error {
	if loc, err := time.LoadLocation(cfg.System.Location); err != nil {
		zap.S().Errorf("timezone config error: %v", err)
	} else {
		time.Local = loc
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return err
	}

	// Catalog API
	images, err := storage.NewDiskStore(cfg.Backend.UploadDir, cfg.Web.BaseURL)
	if err != nil {
		return err
	}
	catalogHandler := catalog.NewCatalogHandler(models.NewProductsRepository(db), images)

	// Admin screen
	pool, err := ants.NewPool(cfg.Admin.Workers)
	if err != nil {
		return pkgerrors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	bus := EventBus.New()
	client := products.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	query := products.NewListQuery(client, cfg.Admin.ListMaxAge)
	if err := query.Watch(bus); err != nil {
		return err
	}
	hooks := products.NewHooks(client, pool, bus, cfg.Admin.MutationTimeout)

	node, err := snowflake.NewNode(cfg.Admin.NodeID)
	if err != nil {
		return pkgerrors.Wrap(err, "create id node")
	}
	previewStore := previews.NewStore("/previews/")
	rules := form.NewRules(nil)
	sessions := screen.NewSessions(node, func() *form.ProductFields {
		return form.NewProductFields(rules, previewStore, screen.RequestPrompter{})
	})

	mux := http.NewServeMux()
	catalogHandler.Register(mux)
	screen.NewHandler(sessions, query, hooks).Register(mux)
	mux.HandleFunc("GET /previews/{id}", previewStore.HandleGet)
	mux.Handle("GET /uploads/", images.Handler())

	sched := cron.New(cron.WithLocation(time.Local))
	if _, err := sched.AddFunc(cfg.Admin.SweepSpec, func() {
		sessions.Sweep(cfg.Admin.DialogTTL)
	}); err != nil {
		return pkgerrors.Wrapf(err, "schedule dialog sweep %q", cfg.Admin.SweepSpec)
	}

	srv := &http.Server{
		Addr:              cfg.Web.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.S().Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		<-sched.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()
		zap.S().Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "connect database")
	}
	if cfg.Debug {
		db = db.Debug()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "database handle")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)

	if err := db.AutoMigrate(models.Tables...); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate database")
	}
	zap.S().Infof("database connected: %s@%s/%s", cfg.User, cfg.Host, cfg.Name)
	return db, nil
}
