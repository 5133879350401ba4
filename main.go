package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"taskplanner/config"
	"taskplanner/connection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	if err := connection.StartServer(cfg); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
