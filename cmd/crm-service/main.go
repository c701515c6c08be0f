package main

import (
	"log"

	"github.com/psds-microservice/crm-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
