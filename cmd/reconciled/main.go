package main

import (
	"log"

	"github.com/CommonsHub/token-bot/services/reconciled"
)

func main() {
	if err := reconciled.Main(); err != nil {
		log.Fatalf("reconciled: %v", err)
	}
}
