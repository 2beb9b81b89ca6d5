package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/pandachat/internal/adminctl"
)

func main() {
	os.Exit(adminctl.Main(context.Background()))
}
