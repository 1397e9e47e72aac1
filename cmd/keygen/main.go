// Command keygen creates Ed25519 keys for zeroledger.
//
//	keygen                 print a fresh seed and public key as hex
//	keygen -o <file>       write a sealed agent key file instead
//
// The printed seed is the format expected by the server's
// SERVER_PRIVATE_KEY_HEX.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/zeroledger/internal/client/cli"
	"github.com/dmitrijs2005/zeroledger/internal/client/keystore"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
)

func main() {
	out := flag.String("o", "", "write a passphrase-sealed key file to this path")
	flag.Parse()

	seed, pub, err := cryptox.GenerateKey()
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	defer common.WipeByteArray(seed)

	if *out == "" {
		fmt.Printf("private_key_hex=%s\npublic_key_hex=%s\n", cryptox.EncodeHex(seed), cryptox.EncodeHex(pub))
		return
	}

	pass := []byte(os.Getenv("ZEROLEDGER_PASSPHRASE"))
	if len(pass) == 0 {
		if pass, err = cli.GetNewPassword(os.Stderr); err != nil {
			log.Fatalf("%v", err)
		}
	}
	defer common.WipeByteArray(pass)

	if _, err := keystore.Create(*out, seed, pass); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("public_key_hex=%s\nkey_file=%s\n", cryptox.EncodeHex(pub), *out)
}
