package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/marzdeck/backend/internal/config"
	"github.com/marzdeck/backend/internal/core/ports"
	"github.com/marzdeck/backend/internal/core/services"
	"github.com/marzdeck/backend/internal/infrastructure/db"
	"github.com/marzdeck/backend/internal/infrastructure/logger"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"github.com/marzdeck/backend/internal/transport/http/handlers"
	httpmw "github.com/marzdeck/backend/internal/transport/http/middleware"
	"github.com/marzdeck/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) error {
	cipher, err := crypto.NewCipher(cfg.Config.Security.EncryptionKey)
	if err != nil {
		return err
	}

	// Repositories
	panelRepo := db.NewPanelRepository(cfg.DB, cfg.Logger)
	credRepo := db.NewPanelCredentialRepository(cfg.DB, cfg.Logger)
	profileRepo := db.NewSSHProfileRepository(cfg.DB, cfg.Logger)
	nodeRepo := db.NewNodeRepository(cfg.DB, cfg.Logger)
	auditRepo := db.NewAuditRepository(cfg.DB, cfg.Logger)
	settingRepo := db.NewSystemSettingRepository(cfg.DB, cfg.Logger)
	templateRepo := db.NewTemplateRepository(cfg.DB, cfg.Logger)

	// One pool bounds all outbound SSH work across jobs and request
	// handlers alike.
	pool := remote.NewPool(cfg.Config.SSH.WorkerPoolSize)
	sessions := ports.RemoteSessionFactory(func(c remote.Config) ports.RemoteSession {
		return remote.NewClient(c, pool)
	})
	clients := ports.PanelClientFactory(func(c panel.ClientConfig) ports.PanelAPI {
		return panel.NewClient(c)
	})

	// Services
	jobManager := services.NewJobManager(cfg.Logger, cfg.Config.Jobs.MaxJobs, cfg.Config.Jobs.TTL)
	panelService := services.NewPanelService(
		panelRepo, credRepo, nodeRepo, auditRepo, cipher, clients,
		cfg.Config.Marzban.RequestTimeout, cfg.Config.Marzban.MaxRetries, cfg.Logger,
	)
	profileService := services.NewSSHProfileService(
		profileRepo, nodeRepo, auditRepo, cipher, sessions,
		cfg.Config.SSH.ConnectTimeout, cfg.Logger,
	)
	installService := services.NewInstallService(
		jobManager, panelRepo, credRepo, profileRepo, nodeRepo, auditRepo,
		cipher, sessions, clients,
		cfg.Config.SSH.ConnectTimeout, cfg.Config.Marzban.RequestTimeout,
		cfg.Config.Marzban.MaxRetries, cfg.Logger,
	)
	nodeService := services.NewNodeService(
		nodeRepo, panelRepo, credRepo, profileRepo, auditRepo,
		cipher, sessions, clients,
		cfg.Config.SSH.ConnectTimeout, cfg.Config.Marzban.RequestTimeout,
		cfg.Config.Marzban.MaxRetries, cfg.Logger,
	)
	settingService := services.NewSettingService(settingRepo, cfg.Logger)
	templateService := services.NewTemplateService(templateRepo, auditRepo, cfg.Logger)
	dashboardService := services.NewDashboardService(
		panelRepo, nodeRepo, profileRepo, auditRepo, jobManager, cfg.Logger,
	)

	// Handlers
	panelHandler := handlers.NewPanelHandler(panelService, cfg.Logger)
	profileHandler := handlers.NewSSHProfileHandler(profileService, cfg.Logger)
	nodeHandler := handlers.NewNodeHandler(nodeService, cfg.Logger)
	installHandler := handlers.NewInstallHandler(installService, cfg.Logger)
	jobHandler := handlers.NewJobHandler(jobManager, cfg.Logger)
	jobStreamHandler := handlers.NewJobStreamHandler(jobManager, cfg.Logger)
	auditHandler := handlers.NewAuditHandler(auditRepo)
	settingHandler := handlers.NewSettingHandler(settingService, cfg.Logger)
	templateHandler := handlers.NewTemplateHandler(templateService, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, cfg.Logger)

	// Websocket upgrade gate
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/jobs/:id", websocket.New(jobStreamHandler.Handle))

	api := app.Group("/api/v1", httpmw.AdminAuth(cfg.Config))

	// Dashboard
	api.Get("/dashboard", dashboardHandler.GetOverview)

	// Panels
	panels := api.Group("/panels")
	panels.Post("/", panelHandler.CreatePanel)
	panels.Get("/", panelHandler.GetPanels)
	panels.Get("/:id", panelHandler.GetPanel)
	panels.Put("/:id", panelHandler.UpdatePanel)
	panels.Delete("/:id", panelHandler.DeletePanel)
	panels.Post("/:id/test", panelHandler.TestPanel)
	panels.Get("/:id/certificate", panelHandler.GetCertificate)
	panels.Get("/:id/nodes", panelHandler.GetPanelNodes)
	panels.Post("/:id/install", installHandler.InstallNode)

	// SSH profiles
	profiles := api.Group("/ssh-profiles")
	profiles.Post("/", profileHandler.CreateProfile)
	profiles.Get("/", profileHandler.GetProfiles)
	profiles.Get("/:id", profileHandler.GetProfile)
	profiles.Put("/:id", profileHandler.UpdateProfile)
	profiles.Delete("/:id", profileHandler.DeleteProfile)
	profiles.Post("/:id/test", profileHandler.TestProfile)

	// Nodes
	nodes := api.Group("/nodes")
	nodes.Get("/", nodeHandler.GetNodes)
	nodes.Get("/:id", nodeHandler.GetNode)
	nodes.Put("/:id", nodeHandler.UpdateNode)
	nodes.Delete("/:id", nodeHandler.DeleteNode)
	nodes.Post("/:id/sync", nodeHandler.SyncStatus)
	nodes.Get("/:id/remote-status", nodeHandler.RemoteStatus)
	nodes.Post("/:id/actions/:action", nodeHandler.RemoteAction)
	nodes.Get("/:id/logs", nodeHandler.RemoteLogs)

	// Jobs
	jobs := api.Group("/jobs")
	jobs.Get("/", jobHandler.GetJobs)
	jobs.Get("/:id", jobHandler.GetJob)
	jobs.Post("/:id/cancel", jobHandler.CancelJob)
	jobs.Delete("/:id", jobHandler.DeleteJob)

	// Configuration templates
	templates := api.Group("/templates")
	templates.Post("/", templateHandler.CreateTemplate)
	templates.Get("/", templateHandler.GetTemplates)
	templates.Get("/:id", templateHandler.GetTemplate)
	templates.Put("/:id", templateHandler.UpdateTemplate)
	templates.Delete("/:id", templateHandler.DeleteTemplate)
	templates.Post("/:id/duplicate", templateHandler.DuplicateTemplate)

	// Audit log
	api.Get("/audit", auditHandler.GetEntries)

	// Settings
	settings := api.Group("/settings")
	settings.Get("/", settingHandler.GetSettings)
	settings.Post("/", settingHandler.SetSetting)
	settings.Get("/:key", settingHandler.GetSetting)
	settings.Delete("/:key", settingHandler.DeleteSetting)

	return nil
}
