package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	db   *sql.DB // set for migrate only

	appRepo      application.Repository
	profileRepo  application.ProfileRepository
	offeringRepo offering.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - manage DB migrations (up, down, status, ...)")
	fmt.Println("  seed [-teacher NAME]   - load a demo teacher with an approved catalog")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	seedTeacher := seedCmd.String("teacher", "Ustadh Kareem", "Display name for the demo teacher.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seed(*seedTeacher)
	default:
		cli.printUsage()
		return errHelp
	}
}
