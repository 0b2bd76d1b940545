// cmd/keygen prints a fresh signer identity and a bearer token for it.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/auth"
)

func main() {
	audience := flag.String("aud", "crowdfund", "token audience")
	ttl := flag.Duration("ttl", 5*time.Minute, "token lifetime")
	seed := flag.String("seed", "", "hex ed25519 seed to reuse an identity")
	flag.Parse()

	var priv ed25519.PrivateKey
	if *seed != "" {
		raw, err := hex.DecodeString(*seed)
		if err != nil || len(raw) != ed25519.SeedSize {
			log.Fatalf("seed must be %d hex-encoded bytes", ed25519.SeedSize)
		}
		priv = ed25519.NewKeyFromSeed(raw)
	} else {
		var err error
		_, priv, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			log.Fatal(err)
		}
	}

	addr, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		log.Fatal(err)
	}
	token, err := auth.Sign(priv, *audience, time.Now(), *ttl)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("address:", addr)
	fmt.Println("seed:   ", hex.EncodeToString(priv.Seed()))
	fmt.Println("token:  ", token)
}
