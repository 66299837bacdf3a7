package commands

import (
	"fmt"
	"os"

	"github.com/dezh-tech/immortal/pkg/logger"
)

func ExitOnError(err error) {
	logger.Error("ephemera error", "err", err.Error())
	os.Exit(1)
}

func HandleHelp(_ []string) {
	fmt.Print(`ephemera: ephemeral content with media reconciliation.

usage:
  ephemera run <path/to/config.yml>   start the api, change feed watcher and reconciler
  ephemera version                    print the version
  ephemera help                       show this message

environment:
  DATABASE_URI          mongodb uri, must point at a replica set
  BROKER_URI            redis uri; the in-memory queue is used when empty
  MINIO_ROOT_USER       minio access key
  MINIO_ROOT_PASSWORD   minio secret key
  ADMIN_API_KEY         enables the /admin endpoints
`) //nolint
}
