package main

import (
	"github.com/corray333/backend-labs/ledger/internal/app"
	"github.com/corray333/backend-labs/ledger/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
