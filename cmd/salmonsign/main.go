// Command salmonsign creates keys and signs or verifies Magic Envelopes for
// manual testing of salmon endpoints.
//
// Usage:
//
//	salmonsign keygen -out key.pem [-bits 2048]
//	salmonsign pubkey -key key.pem
//	salmonsign sign -key key.pem -in entry.xml [-type application/atom+xml] [-key-id id] [-out env.xml]
//	salmonsign verify -pubkey RSA.<mod>.<exp> -in env.xml
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/philiph/caddy-salmon/internal/adapters/driven/magicenv"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen(os.Args[2:])
	case "pubkey":
		err = pubkey(os.Args[2:])
	case "sign":
		err = sign(os.Args[2:])
	case "verify":
		err = verify(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: salmonsign <keygen|pubkey|sign|verify> [flags]")
}

func keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "", "Path to write the PEM private key (required)")
	bits := fs.Int("bits", 2048, "RSA key size in bits")
	fs.Parse(args)

	if *out == "" {
		return errors.New("-out is required")
	}
	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	pemBytes, err := magicenv.EncodePrivateKey(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, pemBytes, 0600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}

	log.Printf("Wrote %d-bit key to %s", *bits, *out)
	fmt.Println(magicenv.NewSigner(key, magicenv.SignOptions{}).PublicKey())
	return nil
}

func pubkey(args []string) error {
	fs := flag.NewFlagSet("pubkey", flag.ExitOnError)
	keyFile := fs.String("key", "", "Path to the PEM private key (required)")
	fs.Parse(args)

	key, err := magicenv.LoadPrivateKey(*keyFile)
	if err != nil {
		return err
	}
	fmt.Println(magicenv.NewSigner(key, magicenv.SignOptions{}).PublicKey())
	return nil
}

func sign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyFile := fs.String("key", "", "Path to the PEM private key (required)")
	in := fs.String("in", "-", "Payload file, or - for stdin")
	out := fs.String("out", "-", "Envelope output file, or - for stdout")
	dataType := fs.String("type", "application/atom+xml", "Data type written to the envelope; empty to omit")
	keyID := fs.String("key-id", "", "Optional key_id attribute for the signature")
	fs.Parse(args)

	key, err := magicenv.LoadPrivateKey(*keyFile)
	if err != nil {
		return err
	}
	payload, err := readInput(*in)
	if err != nil {
		return err
	}

	signer := magicenv.NewSigner(key, magicenv.SignOptions{
		DataType:  *dataType,
		Encoding:  "base64url",
		Algorithm: "RSA-SHA256",
		KeyID:     *keyID,
	})
	env, err := signer.Sign(payload)
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err = os.Stdout.Write(env)
		return err
	}
	return os.WriteFile(*out, env, 0644)
}

func verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	publicKey := fs.String("pubkey", "", "Magic public key RSA.<mod>.<exp> (required)")
	in := fs.String("in", "-", "Envelope file, or - for stdin")
	fs.Parse(args)

	if *publicKey == "" {
		return errors.New("-pubkey is required")
	}
	raw, err := readInput(*in)
	if err != nil {
		return err
	}

	result, err := magicenv.NewVerifier().Verify(raw, *publicKey)
	if err != nil {
		return err
	}
	if !result.Verified {
		return errors.New("signature does not match")
	}
	log.Printf("Signature verified (%d byte payload)", len(result.Payload))
	_, err = os.Stdout.Write(result.Payload)
	return err
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
