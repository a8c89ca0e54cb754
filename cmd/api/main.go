package main

import (
	"log"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"adaptive-cache/internal/config"
	pkgconfig "adaptive-cache/pkg/config"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	server := pkgconfig.NewServer(cfg)

	log.Println("Starting AdaptiveCache server...")
	if err := server.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
