package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"parlour-backend/internal/attendance"
	"parlour-backend/internal/employees"
	"parlour-backend/internal/platform/auth"
	"parlour-backend/internal/platform/db"
	"parlour-backend/internal/platform/realtime"
	"parlour-backend/internal/tasks"
)

func main() {
	// 設定読み込み（yaml + 環境変数）
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	log.Printf("[INFO] mode:%s\n", cfg.Mode)
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	secret := []byte(cfg.JWTSecret)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	// CORS（ダッシュボードのオリジンを許可）
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "http://localhost:3000"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// 配信ハブ
	hub := realtime.NewHub()
	go hub.Run()

	attSvc := attendance.NewService(conn, hub)

	// socket経由の打刻はRESTと同じ経路に落とす
	hub.SetPunchHandler(func(ctx context.Context, msg realtime.PunchMessage) (any, error) {
		res, err := attSvc.RecordPunch(ctx, attendance.CreatePunchRequest{
			EmployeeID: msg.EmployeeID,
			Type:       msg.Type,
			Timestamp:  msg.Timestamp,
		})
		if err != nil {
			var api *attendance.APIError
			if errors.As(err, &api) {
				return nil, errors.New(api.Message)
			}
			return nil, err
		}
		return res, nil
	})

	r.GET("/ws", realtime.ServeWS(hub, secret))

	// /api
	api := r.Group("/api")
	auth.RegisterRoutes(api.Group("/auth"), auth.NewService(conn, secret))

	authed := auth.RequireAuth(secret)
	employees.RegisterRoutes(api.Group("/employees", authed), employees.NewService(conn))
	tasks.RegisterRoutes(api.Group("/tasks", authed), tasks.NewService(conn, hub))
	attendance.RegisterRoutes(api.Group("/attendance", authed), attSvc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on http://0.0.0.0:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
