package main

import (
	"log"
	"os"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/storage/database"
	localdb "github.com/mutqin/backend/storage/local"
	storedb "github.com/mutqin/backend/storage/store"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	cli := commandLine{conf: conf}

	// the migrate command manages the DB itself; everything else goes
	// through the configured backend
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		errAndDie(database.CreateIfNotExist(conf))
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		cli.db = db
	} else {
		var local core.KVStore
		if conf.Storage == "postgres" {
			db, err := database.Open(conf)
			errAndDie(err)
			defer db.Close()
			local = database.NewStore(db)
		} else {
			ldb, err := localdb.Open(conf.DataDir)
			errAndDie(err)
			local = ldb
		}
		store := core.NewStore(local, nil, core.NopLogger{})
		cli.appRepo = storedb.NewApplicationRepository(store)
		cli.profileRepo = storedb.NewProfileRepository(store)
		cli.offeringRepo = storedb.NewOfferingRepository(store)
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
