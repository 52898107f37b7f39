package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/MrSnakeDoc/landing/internal/app"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ landing failed to start: %v", err)
	}
}
