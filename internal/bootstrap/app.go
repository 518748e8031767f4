package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"repstack-backend/internal/shared/config"
	"repstack-backend/internal/shared/server"
	"repstack-backend/internal/shared/storage/db"
	"repstack-backend/internal/shared/storage/object"
	localstore "repstack-backend/internal/shared/storage/object/local"
	s3store "repstack-backend/internal/shared/storage/object/s3"
	"repstack-backend/internal/standards"
	"repstack-backend/internal/submissions"
	"repstack-backend/internal/users"
	"repstack-backend/internal/vision"
)

// App holds shared dependencies wired from config.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Videos             object.VideoStore
	Vision             vision.Client
	SubmissionsRepo    submissions.Repo
	StandardsRepo      standards.Repo
	UsersRepo          users.Repo
	UsersService       *users.Service
	SubmissionsService *submissions.Service
	SubmissionsHandler *submissions.Handler
	UsersHandler       *users.Handler
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	videos, err := buildVideoStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Videos: videos,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		SubmissionsHandler: app.SubmissionsHandler,
		UsersHandler:       app.UsersHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildVideoStore(ctx context.Context, cfg config.Config) (object.VideoStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.LocalStoreBaseURL), nil
	}
}

func buildServices(app *App) error {
	var subRepo submissions.Repo
	var stdRepo standards.Repo
	var userRepo users.Repo

	if app.DB != nil {
		subRepo = &submissions.PGRepo{DB: app.DB}
		stdRepo = &standards.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		subRepo = submissions.NewMemoryRepo()
		stdRepo = standards.NewDefaults()
		userRepo = users.NewMemoryRepo()
	}

	visionClient := vision.Client(vision.Placeholder{})
	if strings.TrimSpace(app.Config.VisionAPIURL) != "" {
		httpClient, err := vision.NewHTTPClient(app.Config.VisionAPIURL, app.Config.VisionAPIKey, app.Config.VisionTimeout)
		if err != nil {
			return err
		}
		visionClient = httpClient
	} else if !isDevLike(app.Config.Env) {
		return fmt.Errorf("VISION_API_URL is required")
	}

	userSvc := &users.Service{Repo: userRepo}
	subSvc := submissions.NewService(
		subRepo,
		stdRepo,
		userSvc,
		visionClient,
		app.Videos,
		app.Config.AnalyzerMaxConcurrent,
		app.Config.SubmissionWatchdog,
	)

	app.SubmissionsRepo = subRepo
	app.StandardsRepo = stdRepo
	app.UsersRepo = userRepo
	app.Vision = visionClient
	app.UsersService = userSvc
	app.SubmissionsService = subSvc
	app.SubmissionsHandler = submissions.NewHandler(subSvc)
	app.UsersHandler = users.NewHandler(userSvc)

	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
