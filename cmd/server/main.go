package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/pandachat/internal/server"
)

func main() {
	os.Exit(server.Main(context.Background()))
}
