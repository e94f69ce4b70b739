package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"betbot/cmd"
	"betbot/database"

	log "github.com/sirupsen/logrus"
)

const migrateUsage = "usage: betbot migrate up | down [steps] | status"

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "migrate" {
		if err := migrate(args[1:]); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Bot stopped with error")
	}
}

func migrate(args []string) error {
	if len(args) == 0 {
		return errors.New(migrateUsage)
	}
	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		if len(args) > 1 {
			return database.MigrateDown(args[1])
		}
		return database.MigrateDown("1")
	case "status":
		return database.MigrateStatus()
	}
	return fmt.Errorf("unknown migrate command %q\n%s", args[0], migrateUsage)
}
