package main

import (
	"log"

	"github.com/CommonsHub/token-bot/services/tokenbotd"
)

func main() {
	if err := tokenbotd.Main(); err != nil {
		log.Fatalf("tokenbotd: %v", err)
	}
}
