package main

import (
	"context"
	"log"
	"os"

	"github.com/studyshare/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), commandArgs(os.Args[1:])); err != nil {
		log.Fatalf("studyshare: %v", err)
	}
}

// commandArgs defaults a bare invocation to serve so the binary can be a
// container entrypoint without arguments.
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"serve"}
	}
	return args
}
