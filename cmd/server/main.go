package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/api"
	"github.com/youruser/idcardapp/internal/bot"
	"github.com/youruser/idcardapp/internal/config"
	"github.com/youruser/idcardapp/internal/extract"
	imagepkg "github.com/youruser/idcardapp/internal/image"
	"github.com/youruser/idcardapp/internal/telegram"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	template, err := imagepkg.LoadTemplate(ctx, cfg.Card.TemplatePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Card.TemplatePath).Msg("load template")
	}
	fonts := imagepkg.LoadFonts(imagepkg.FontConfig{
		AmharicPath: cfg.Card.FontAmharic,
		LatinPath:   cfg.Card.FontEnglish,
		Size:        cfg.Card.FontSize,
		Boldness:    cfg.Card.Boldness,
	})

	composer := imagepkg.NewComposer(template, fonts)
	composer.Rasterizer = imagepkg.NewRasterizer(cfg.Card.RasterDPI)
	composer.Fields = extract.New()
	composer.Annotate = cfg.Card.Annotate
	for script, src := range composer.FontChoices() {
		log.Info().Str("component", "FONTS").Str("script", string(script)).Str("source", src).Msg("font selected")
	}

	tg := telegram.New(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken)
	if me, err := tg.GetMe(ctx); err != nil {
		log.Warn().Err(err).Str("component", "TELEGRAM").Msg("getMe failed, continuing")
	} else {
		log.Info().Str("component", "TELEGRAM").Str("username", me.Username).Msg("bot authenticated")
	}

	svc := bot.NewService(tg, composer, cfg.Card.ScratchRoot, cfg.Card.ComposeTimeout)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())
	api.RegisterRoutes(r, &api.Handler{Processor: svc, Chat: tg, BaseURL: cfg.Telegram.WebhookURL})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("name", cfg.Telegram.BotName).Msg("starting server on http://localhost:" + cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Card.ComposeTimeout+10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	svc.Wait()
}
