package main

import (
	"log"
	"os"

	emulatorapi "github.com/nurturehq/nurture/apps/emulator/echo"
	"github.com/nurturehq/nurture/core"
	logsvc "github.com/nurturehq/nurture/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := log.New(os.Stdout, "EMULATOR : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	app := emulatorapi.NewServer(&emulatorapi.Options{
		Addr:        ":9099",
		Debug:       conf.Debug,
		SecretKey:   []byte("nurture-emulator-secret"),
		Target:      conf.QuestionnaireTarget,
		MaxChildren: conf.MaxChildren,
		Logger:      logsvc.NewStdLogger(logger, conf),
	})
	app.Start()
}
