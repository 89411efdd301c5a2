// Command tokenbot-keytool manages the bot's encrypted operating key.
//
//	tokenbot-keytool generate -out bot.keystore
//	tokenbot-keytool import -hex <private key hex> -out bot.keystore
//	tokenbot-keytool address -keystore bot.keystore
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/CommonsHub/token-bot/internal/passphrase"
	"github.com/CommonsHub/token-bot/config"
	botcrypto "github.com/CommonsHub/token-bot/crypto"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "generate":
		generate(os.Args[2:])
	case "import":
		importKey(os.Args[2:])
	case "address":
		address(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tokenbot-keytool <generate|import|address> [flags]")
	os.Exit(2)
}

func generate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("out", "bot.keystore", "keystore output path")
	_ = fs.Parse(args)

	key, err := botcrypto.GeneratePrivateKey()
	if err != nil {
		log.Fatalf("tokenbot-keytool: generate key: %v", err)
	}
	save(key, *out)
}

func importKey(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	hexKey := fs.String("hex", "", "private key as hex")
	out := fs.String("out", "bot.keystore", "keystore output path")
	_ = fs.Parse(args)

	if *hexKey == "" {
		log.Fatal("tokenbot-keytool: -hex is required")
	}
	key, err := botcrypto.PrivateKeyFromHex(*hexKey)
	if err != nil {
		log.Fatalf("tokenbot-keytool: parse key: %v", err)
	}
	save(key, *out)
}

func address(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	path := fs.String("keystore", "bot.keystore", "keystore path")
	_ = fs.Parse(args)

	pass, err := passphrase.NewSource(config.EnvBotKeystorePass).Get()
	if err != nil {
		log.Fatalf("tokenbot-keytool: %v", err)
	}
	key, err := botcrypto.LoadFromKeystore(*path, pass)
	if err != nil {
		log.Fatalf("tokenbot-keytool: open keystore: %v", err)
	}
	fmt.Println(key.PubKey().Address().Hex())
}

func save(key *botcrypto.PrivateKey, out string) {
	pass, err := passphrase.NewSource(config.EnvBotKeystorePass).Get()
	if err != nil {
		log.Fatalf("tokenbot-keytool: %v", err)
	}
	if err := botcrypto.SaveToKeystore(out, key, pass); err != nil {
		log.Fatalf("tokenbot-keytool: write keystore: %v", err)
	}
	fmt.Printf("wrote %s for %s\n", out, key.PubKey().Address().Hex())
}
