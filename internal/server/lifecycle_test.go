package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/testutil"
)

func TestServer_Lifecycle(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	cm, err := config.NewManager(cfg.ConfigFile, cfg.HomeDir)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := home.New(cfg.HomeDir)

	srv, err := New(Config{Host: cfg.Host, Port: cfg.Port, ConfigManager: cm, Home: h, Logger: cfg.Logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	starter := testutil.StartServer{Cancel: cancel, Done: done}

	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		starter.Stop()
		t.Fatalf("server did not start: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false, want true")
	}

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	cancel()
	if err := testutil.WaitForShutdown(done, 30*time.Second); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if _, err := http.Get(cfg.URL() + "/health"); err == nil {
		t.Error("server still answering after shutdown")
	}
}

func TestServer_PortInUse(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	cm, err := config.NewManager(cfg.ConfigFile, cfg.HomeDir)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := home.New(cfg.HomeDir)

	first, _ := New(Config{Host: cfg.Host, Port: cfg.Port, ConfigManager: cm, Home: h, Logger: cfg.Logger})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Start(ctx) }()
	defer (&testutil.StartServer{Cancel: cancel, Done: done}).Stop()
	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		t.Fatal(err)
	}

	second, _ := New(Config{Host: cfg.Host, Port: cfg.Port, ConfigManager: cm, Home: h, Logger: cfg.Logger})
	if err := second.Start(context.Background()); err == nil {
		t.Error("Start() on a busy port should fail")
	}
	if second.IsRunning() {
		t.Error("IsRunning() = true after failed start")
	}
}
