package main

import (
	"lore/cmd/handlers"
	"lore/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
