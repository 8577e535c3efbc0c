package main

import (
	"log"
	"os"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/activity"
	"github.com/nurturehq/nurture/core/child"
	"github.com/nurturehq/nurture/core/session"
	identitysvc "github.com/nurturehq/nurture/services/identity"
	logsvc "github.com/nurturehq/nurture/services/logger"
	"github.com/nurturehq/nurture/services/nurtureapi"
	sessionstore "github.com/nurturehq/nurture/storage/session"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "NURTURE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	errAndDie(conf.Validate())

	var logSvc core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logSvc = logsvc.NewRollbarLogger(logger, conf)
	} else {
		logSvc = logsvc.NewStdLogger(logger, conf)
	}

	// set up the local cache
	db, err := sessionstore.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(sessionstore.Migrate(db))
	store := sessionstore.NewStore(db)

	// wire services
	provider := identitysvc.NewService(conf, logSvc)
	sess := session.NewSession(conf, provider, store, logSvc)
	if _, err = sess.Restore(); err != nil && err != session.ErrNoSession {
		logSvc.Warn("restoring session", err)
	}
	client, err := nurtureapi.NewClient(conf, sess, logSvc)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		conf:     conf,
		log:      logSvc,
		sess:     sess,
		store:    store,
		children: child.NewService(conf, nurtureapi.NewChildRepository(client)),
		acts:     activity.NewService(nurtureapi.NewActivityRepository(client), logSvc),
		onb:      nurtureapi.NewOnboardingRepository(client),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
