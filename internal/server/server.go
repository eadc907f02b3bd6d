package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/lingoflow/internal/catalog"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/job"
	jobdomain "github.com/smallbiznis/lingoflow/internal/job/domain"
	"github.com/smallbiznis/lingoflow/internal/observability"
	obslogger "github.com/smallbiznis/lingoflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/lingoflow/internal/observability/tracing"
	"github.com/smallbiznis/lingoflow/internal/party"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"github.com/smallbiznis/lingoflow/internal/pricelist"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	"github.com/smallbiznis/lingoflow/internal/project"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	"github.com/smallbiznis/lingoflow/internal/scope"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"github.com/smallbiznis/lingoflow/internal/settings"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Domains bundles every domain module the HTTP server depends on.
var Domains = fx.Options(
	catalog.Module,
	party.Module,
	settings.Module,
	scope.Module,
	pricelist.Module,
	project.Module,
	job.Module,
)

var Module = fx.Module("http.server",
	Domains,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	partySvc     partydomain.Service
	settingsSvc  settingsdomain.Service
	scopeSvc     scopedomain.Service
	priceListSvc pricelistdomain.Service
	projectSvc   projectdomain.Service
	jobSvc       jobdomain.Service
	ledgerSvc    jobdomain.LedgerService
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	PartySvc     partydomain.Service
	SettingsSvc  settingsdomain.Service
	ScopeSvc     scopedomain.Service
	PriceListSvc pricelistdomain.Service
	ProjectSvc   projectdomain.Service
	JobSvc       jobdomain.Service
	LedgerSvc    jobdomain.LedgerService
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		partySvc:     p.PartySvc,
		settingsSvc:  p.SettingsSvc,
		scopeSvc:     p.ScopeSvc,
		priceListSvc: p.PriceListSvc,
		projectSvc:   p.ProjectSvc,
		jobSvc:       p.JobSvc,
		ledgerSvc:    p.LedgerSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", TenantRequired())

	for _, kind := range []partydomain.Kind{partydomain.KindVendor, partydomain.KindClient} {
		parties := api.Group("/" + kind.Table())
		parties.POST("", s.CreateParty(kind))
		parties.GET("", s.ListParties(kind))
		parties.GET("/:id", s.GetParty(kind))
		parties.DELETE("/:id", s.DeleteParty(kind))

		scopes := api.Group("/" + kind.String() + "-scopes/:party_id/:dimension")
		scopes.POST("", s.AddScopeEntry(kind))
		scopes.GET("", s.ListScopeEntries(kind))
		scopes.DELETE("/:value_id", s.RemoveScopeEntry(kind))

		prices := api.Group("/" + kind.String() + "-price-list")
		prices.POST("", s.CreatePriceList(kind))
		prices.GET("", s.ListPriceLists(kind))
		prices.GET("/:id", s.GetPriceList(kind))
		prices.PUT("/:id", s.UpdatePriceList(kind))
		prices.DELETE("/:id", s.DeletePriceList(kind))
	}

	api.GET("/vendor-settings/:vendor_id", s.GetVendorSettings)
	api.PUT("/vendor-settings/:vendor_id", s.UpdateVendorSettings)

	api.POST("/projects", s.CreateProject)
	api.GET("/projects", s.ListProjects)
	api.GET("/projects/:id", s.GetProject)
	api.PUT("/projects/:id", s.UpdateProject)
	api.DELETE("/projects/:id", s.DeleteProject)
	api.GET("/project-status-history/:id", s.ListProjectStatusHistory)

	api.POST("/jobs", s.CreateJob)
	api.GET("/jobs", s.ListJobs)
	api.GET("/jobs/:id", s.GetJob)
	api.DELETE("/jobs/:id", s.DeleteJob)
	api.GET("/jobs/:id/price-suggestions", s.SuggestPrices)
	api.GET("/jobs/:id/financial-summary", s.GetFinancialSummary)

	for _, variant := range lineVariants {
		lines := api.Group(variant.path)
		lines.POST("", s.CreateFinancialLine(variant))
		lines.GET("", s.ListFinancialLines(variant))
		lines.GET("/:id", s.GetFinancialLine(variant))
		lines.PUT("/:id", s.UpdateFinancialLine(variant))
		lines.DELETE("/:id", s.DeleteFinancialLine(variant))
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrRouteNotFound)
	})
}
