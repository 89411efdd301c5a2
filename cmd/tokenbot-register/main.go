// Command tokenbot-register synchronises the guild slash commands with the
// set this build of the bot understands. Run it once per deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/CommonsHub/token-bot/commands"
	"github.com/CommonsHub/token-bot/config"
)

func main() {
	var apiBase string
	flag.StringVar(&apiBase, "api-base", "", "override the platform API base URL")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("tokenbot-register: %v", err)
	}
	if cfg.ApplicationID == "" {
		log.Fatalf("tokenbot-register: %s is required", config.EnvApplicationID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 15 * time.Second}
	if err := commands.Register(ctx, client, apiBase, cfg.DiscordToken, cfg.ApplicationID, cfg.GuildID); err != nil {
		log.Fatalf("tokenbot-register: %v", err)
	}
	fmt.Printf("registered %d commands for guild %s\n", len(commands.Definitions()), cfg.GuildID)
}
