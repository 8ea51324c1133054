package main

import (
	"log"

	"github.com/lumonlab/crecheauth/internal/auth/app"
)

func main() {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
