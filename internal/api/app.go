package api

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/auth"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/authz"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/config"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/discord"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/gameserver"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/handler"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/mailer"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/repository"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/storage"
)

// App is the assembled HTTP application plus the worker the supervisor runs
type App struct {
	Router *gin.Engine
	Forum  *service.ForumSyncer
	JWT    *auth.JWTManager
}

// NewApp wires repositories, clients, services and handlers over an open
// database and object store. A nil send uses net/smtp.
func NewApp(cfg *config.Config, db *sql.DB, objects *storage.Store, send mailer.SendFunc) (*App, error) {
	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("authz: %w", err)
	}

	listingRepo := repository.NewListingRepository(db)
	mloRepo := repository.NewMLORepository(db)

	chat := discord.NewClient(discord.Config{
		BaseURL:        cfg.Discord.APIBaseURL,
		BotToken:       cfg.Discord.BotToken,
		RequestTimeout: cfg.Discord.RequestTimeout,
	})
	servers := gameserver.NewClient(gameserver.Config{
		BaseURL:        cfg.GameServer.BaseURL,
		RequestTimeout: cfg.GameServer.RequestTimeout,
	})
	mail := mailer.New(mailer.Config{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		Username:      cfg.SMTP.Username,
		Password:      cfg.SMTP.Password,
		From:          cfg.SMTP.From,
		ModeratorAddr: cfg.SMTP.ModeratorAddr,
	}, send)

	forum := service.NewForumSyncer(listingRepo, chat, cfg.Discord.ForumChannelID, cfg.Discord.SiteURL, cfg.Discord.SyncQueueSize)

	claimService := service.NewClaimService(listingRepo, chat, forum, cfg.Claim.PinTTL)
	listingService := service.NewListingService(service.ListingDeps{
		Store:          listingRepo,
		Objects:        objects,
		Authz:          enforcer,
		Notifier:       mail,
		Forum:          forum,
		Servers:        servers,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	mloService := service.NewMLOService(mloRepo, objects, enforcer, mail, cfg.Server.MaxUploadBytes)
	mapService := service.NewMapService(mloRepo)

	router := SetupRouter(Deps{
		Config:   cfg,
		JWT:      jwtManager,
		Enforcer: enforcer,
		Claims:   handler.NewClaimHandler(claimService),
		Listings: handler.NewListingHandler(listingService, cfg.Server.MaxUploadBytes),
		MLOs:     handler.NewMLOHandler(mloService, cfg.Server.MaxUploadBytes),
		Map:      handler.NewMapHandler(mapService),
		Storage:  handler.NewStorageHandler(objects),
		Ping:     db.PingContext,
	})

	return &App{Router: router, Forum: forum, JWT: jwtManager}, nil
}
