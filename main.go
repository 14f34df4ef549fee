package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scholarfeed/classifier"
	"scholarfeed/config"
	"scholarfeed/models"
	"scholarfeed/parsers"
	"scholarfeed/providers"
	"scholarfeed/providers/arxiv"
	"scholarfeed/providers/biorxiv"
	"scholarfeed/providers/pubmed"
	"scholarfeed/services"
	"scholarfeed/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	newArticlesCounter     prometheus.Counter
	interactionsCounter    prometheus.Counter
	retrainingsCounter     prometheus.Counter
	recommendationsCounter prometheus.Counter
)

func init() {
	newArticlesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "new_articles_added_total",
		Help: "Total number of new articles added to the database.",
	})
	interactionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interactions_recorded_total",
		Help: "Total number of user interactions recorded.",
	})
	retrainingsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrainings_total",
		Help: "Total number of completed classifier training runs.",
	})
	recommendationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recommendations_written_total",
		Help: "Total number of recommendation records written.",
	})
	prometheus.MustRegister(newArticlesCounter, interactionsCounter, retrainingsCounter, recommendationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.User{}, &models.UserProfile{},
		&models.Article{}, &models.Recommendation{},
		&models.UserUpload{}, &models.UserTextInput{}, &models.UserLog{},
	)

	// Setup Sources
	enabledSourceNames := strings.Split(cfg.EnabledSources, ",")
	var sources []providers.Source
	for _, name := range enabledSourceNames {
		switch strings.TrimSpace(name) {
		case "pubmed":
			sources = append(sources, pubmed.NewFetcher(cfg, logging))
		case "arxiv":
			sources = append(sources, arxiv.NewFetcher(cfg, logging))
		case "biorxiv":
			sources = append(sources, biorxiv.NewFetcher(cfg, logging))
		default:
			logging.Warn("Unknown source in config", zap.String("source_name", name))
		}
	}
	if len(sources) == 0 {
		logging.Fatal("No valid sources enabled. Check ENABLED_SOURCES in .env")
	}
	logging.Info("Active sources loaded", zap.Strings("sources", enabledSourceNames))

	// Setup Stores and Services
	articleStore := store.NewArticleStore(db)
	recStore := store.NewRecommendationStore(db)
	userStore := store.NewUserStore(db)
	uploadStore := store.NewUploadStore(db)
	logStore := store.NewLogStore(db)
	modelStore := classifier.NewStore(cfg.ModelDir, logging)

	builder := services.NewTrainingSetBuilder(cfg, articleStore, recStore, uploadStore, sources, logging)
	trainService := services.NewTrainService(cfg, builder, modelStore, logging)
	recommender := services.NewRecommender(cfg, articleStore, recStore, modelStore, logging)
	retrainService := services.NewRetrainService(cfg, userStore, recStore, trainService, recommender, logging)
	interactionService := services.NewInteractionService(userStore, recStore, logStore, logging)
	accountService := services.NewAccountService(cfg, userStore, recStore, uploadStore, modelStore, logging)
	fetchService := services.NewFetchService(cfg, articleStore, sources, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupArticleRoutes(router, articleStore, logging)
	setupRecommendationRoutes(router, recStore, userStore, logging)
	setupInteractionRoutes(router, interactionService, logging)
	setupUploadRoutes(router, cfg, uploadStore, logging)
	setupAccountRoutes(router, accountService, logging)
	setupAdminRoutes(router, fetchService, trainService, retrainService, recommender, accountService, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.FetchCronSchedule, func() {
		logging.Info("Running scheduled fetch job...")
		count, err := fetchService.FetchLastDays(context.Background(), 1)
		if err != nil {
			logging.Error("Fetch cron job failed", zap.Error(err))
		}
		newArticlesCounter.Add(float64(count))

		if count > 0 {
			written := recommender.RunForUsers(context.Background(), allUserIDs(userStore, logging),
				services.CandidateFilter{UnrankedOnly: true})
			recommendationsCounter.Add(float64(written))
		}
	})
	cronScheduler.AddFunc(cfg.RetrainCronSchedule, func() {
		logging.Info("Running scheduled retraining sweep...")
		retrained, err := retrainService.RunSweep(context.Background(), nil, false)
		if err != nil {
			logging.Error("Retrain cron job failed", zap.Error(err))
		}
		retrainingsCounter.Add(float64(retrained))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func allUserIDs(users *store.UserStore, log *zap.Logger) []uint {
	list, err := users.GetByIDs(nil)
	if err != nil {
		log.Error("Could not list users", zap.Error(err))
		return nil
	}
	ids := make([]uint, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func setupArticleRoutes(router *gin.Engine, arts *store.ArticleStore, log *zap.Logger) {
	rg := router.Group("/articles")

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := paramUint(c, "id")
		if !ok {
			return
		}
		article, err := arts.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
				return
			}
			log.Error("DB error fetching article", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"article": article,
			"authors": article.AuthorsList(),
		})
	})

	rg.POST("/query", func(c *gin.Context) {
		type ArticleQuery struct {
			Start    string `json:"start"`
			End      string `json:"end"`
			LastDays int    `json:"last_days"`
		}
		var req ArticleQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		var articles []*models.Article
		var err error
		switch {
		case req.Start != "" && req.End != "":
			var start, end time.Time
			if start, err = time.Parse("2006-01-02", req.Start); err == nil {
				end, err = time.Parse("2006-01-02", req.End)
			}
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
				return
			}
			articles, err = arts.FilterByDateRange(start, end)
		case req.LastDays > 0:
			articles, err = arts.PublishedSince(time.Now().AddDate(0, 0, -req.LastDays))
		default:
			articles, err = arts.All()
		}
		if err != nil {
			log.Error("Database query for articles failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, articles)
	})
}

func setupRecommendationRoutes(router *gin.Engine, recs *store.RecommendationStore, users *store.UserStore, log *zap.Logger) {
	rg := router.Group("/users/:id/recommendations")

	rg.GET("/", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

		list, err := recs.ForUser(userID, limit)
		if err != nil {
			log.Error("DB error fetching recommendations", zap.Uint("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if err := users.TouchLastVisit(userID); err != nil {
			log.Warn("Could not update last visit", zap.Uint("user_id", userID), zap.Error(err))
		}
		c.JSON(http.StatusOK, list)
	})
}

func setupInteractionRoutes(router *gin.Engine, interactions *services.InteractionService, log *zap.Logger) {
	rg := router.Group("/users/:id/interactions")

	rg.POST("/", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		var req struct {
			ArticleID uint   `json:"article_id" binding:"required"`
			Kind      string `json:"kind" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "article_id and kind are required"})
			return
		}

		rec, err := interactions.Record(userID, req.ArticleID, req.Kind)
		if err != nil {
			if errors.Is(err, services.ErrUnknownInteraction) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("Failed to record interaction",
				zap.Uint("user_id", userID), zap.Uint("article_id", req.ArticleID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record interaction"})
			return
		}
		interactionsCounter.Inc()
		c.JSON(http.StatusOK, rec)
	})
}

func setupUploadRoutes(router *gin.Engine, cfg *config.Config, uploads *store.UploadStore, log *zap.Logger) {
	rg := router.Group("/users/:id/uploads")

	rg.POST("/", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		switch strings.ToLower(filepath.Ext(file.Filename)) {
		case ".bib", ".ris", ".xml":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": parsers.ErrUnsupportedFormat.Error()})
			return
		}

		dst := filepath.Join(cfg.UploadDir, strconv.FormatUint(uint64(userID), 10), filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Error("Could not save upload", zap.String("filename", file.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
			return
		}

		upload := &models.UserUpload{UserID: userID, Filename: file.Filename, Path: dst}
		if err := uploads.Create(upload); err != nil {
			log.Error("Could not record upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record upload"})
			return
		}
		c.JSON(http.StatusCreated, upload)
	})

	rg.GET("/", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		list, err := uploads.ForUser(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.POST("/text", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		var req struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text field is required"})
			return
		}
		if len(parsers.ParseIdentifierList(req.Text)) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no identifiers found"})
			return
		}

		input := &models.UserTextInput{UserID: userID, Text: req.Text}
		if err := uploads.CreateTextInput(input); err != nil {
			log.Error("Could not record text input", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record text input"})
			return
		}
		c.JSON(http.StatusCreated, input)
	})
}

func setupAccountRoutes(router *gin.Engine, accounts *services.AccountService, log *zap.Logger) {
	rg := router.Group("/users/:id/account")

	rg.POST("/reset", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		if err := accounts.Reset(userID); err != nil {
			log.Error("Account reset failed", zap.Uint("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "account reset failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "account reset"})
	})

	rg.DELETE("/", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		if err := accounts.Delete(userID); err != nil {
			log.Error("Account deletion failed", zap.Uint("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "account deletion failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
	})
}

// setupAdminRoutes exposes the long-running batch operations. They all run
// asynchronously and answer 202 right away; progress shows up in the logs
// and the metrics.
func setupAdminRoutes(router *gin.Engine, fetch *services.FetchService, train *services.TrainService,
	retrain *services.RetrainService, recommender *services.Recommender,
	accounts *services.AccountService, log *zap.Logger) {
	rg := router.Group("/admin")

	rg.POST("/fetch", func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "1"))
		go func() {
			count, err := fetch.FetchLastDays(context.Background(), days)
			if err != nil {
				log.Error("Async fetch failed", zap.Error(err))
			}
			newArticlesCounter.Add(float64(count))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Fetch triggered."})
	})

	rg.POST("/train/:id", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		exhaustive := c.DefaultQuery("exhaustive", "false") == "true"
		go func() {
			err := train.TrainUser(context.Background(), userID, exhaustive)
			switch {
			case errors.Is(err, services.ErrInsufficientData):
				log.Warn("Async training skipped, not enough data", zap.Uint("user_id", userID))
			case err != nil:
				log.Error("Async training failed", zap.Uint("user_id", userID), zap.Error(err))
			default:
				retrainingsCounter.Inc()
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Training triggered."})
	})

	rg.POST("/retrain", func(c *gin.Context) {
		force := c.DefaultQuery("force", "false") == "true"
		go func() {
			retrained, err := retrain.RunSweep(context.Background(), nil, force)
			if err != nil {
				log.Error("Async retraining sweep failed", zap.Error(err))
			}
			retrainingsCounter.Add(float64(retrained))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Retraining sweep triggered."})
	})

	rg.POST("/recommend/:id", func(c *gin.Context) {
		userID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		var filter services.CandidateFilter
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&filter); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}
		go func() {
			written, err := recommender.RunForUser(context.Background(), userID, filter)
			if err != nil {
				log.Error("Async recommendation run failed", zap.Uint("user_id", userID), zap.Error(err))
			}
			recommendationsCounter.Add(float64(written))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Recommendation run triggered."})
	})

	rg.POST("/cleanup-inactive", func(c *gin.Context) {
		go func() {
			deleted, err := accounts.DeleteInactive(context.Background())
			if err != nil {
				log.Error("Async inactive cleanup failed", zap.Error(err))
			}
			log.Info("Inactive cleanup finished", zap.Int("deleted", deleted))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Inactive account cleanup triggered."})
	})
}
