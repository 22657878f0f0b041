package main

import (
	"github.com/humanbelnik/soundbyte/internal/app"
	"github.com/humanbelnik/soundbyte/internal/config"
)

func main() {
	app.Go(config.Load())
}
