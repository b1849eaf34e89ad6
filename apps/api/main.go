package main

import (
	"log"
	"os"
	"time"

	echoapi "github.com/mutqin/backend/apps/api/echo"
	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
	"github.com/mutqin/backend/core/session"
	appfs "github.com/mutqin/backend/fs"
	emailsvc "github.com/mutqin/backend/services/email"
	gatewaysvc "github.com/mutqin/backend/services/gateway"
	loggersvc "github.com/mutqin/backend/services/logger"
	meetingsvc "github.com/mutqin/backend/services/meeting"
	remotesvc "github.com/mutqin/backend/services/remote"
	"github.com/mutqin/backend/storage/database"
	localdb "github.com/mutqin/backend/storage/local"
	storedb "github.com/mutqin/backend/storage/store"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatal(err)
	}

	var logger core.Logger
	if conf.Debug {
		logger = loggersvc.NewZapLogger(conf)
	} else {
		logger = loggersvc.NewRollbarLogger(std, conf)
	}

	core.InitMailTemplates(appfs.FS, conf)

	// set up the local backend
	var local core.KVStore
	switch conf.Storage {
	case "postgres":
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal("creating database", err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migrating database", err)
		}
		local = database.NewStore(db)
	default:
		ldb, err := localdb.Open(conf.DataDir)
		if err != nil {
			logger.Fatal("opening local store", err)
		}
		local = ldb
	}

	// optional best-effort mirror
	var remote core.RemoteMirror
	if conf.Remote.Enabled {
		remote = remotesvc.NewClient(conf)
	}
	store := core.NewStore(local, remote, logger)
	defer store.Flush()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	appSvc := application.NewService(storedb.NewApplicationRepository(store), mailSvc)
	profileSvc := application.NewProfileService(storedb.NewProfileRepository(store))
	offeringSvc := offering.NewService(storedb.NewOfferingRepository(store))
	sessionSvc := session.NewService(
		storedb.NewSessionRepository(store),
		storedb.NewPaymentRepository(store),
		storedb.NewOfferingRepository(store),
		gatewaysvc.NewSimulatedGateway(500*time.Millisecond, logger),
		meetingsvc.NewProvider(conf),
		mailSvc,
	)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:        conf.Server.Address(),
			Conf:        conf,
			Logger:      logger,
			AppSvc:      appSvc,
			ProfileSvc:  profileSvc,
			OfferingSvc: offeringSvc,
			SessionSvc:  sessionSvc,
			SyncStore:   local,
		},
	)
	app.Start()
}
