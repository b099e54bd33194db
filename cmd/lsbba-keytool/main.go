// Command lsbba-keytool manages sealed-bid auction keys and bid payloads.
//
// Modes:
//
//	keygen  - generate an auction RSA key pair and write it to a JSON file
//	encrypt - seal a bid's amount out under a lot's public modulus
//	decrypt - recover the amount out and OAEP seed for a decrypt claim
package main

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/Axis-Fi/axis-core-sub009/auction"
	"github.com/Axis-Fi/axis-core-sub009/keyattest"
	"github.com/Axis-Fi/axis-core-sub009/lsbba"
	"github.com/Axis-Fi/axis-core-sub009/rsaoaep"
)

// keyFile is the on-disk key record. The private key stays with the
// operator; only the modulus hex travels into lot creation.
type keyFile struct {
	KeyID         string `json:"key_id"`
	PrivateKeyPEM string `json:"private_key_pem"`
	ModulusHex    string `json:"modulus_hex"`
	Fingerprint   string `json:"fingerprint"`
}

func main() {
	var (
		mode    = flag.String("mode", "", "keygen, encrypt or decrypt (required)")
		keyPath = flag.String("key", "", "Path to key JSON file (keygen output, decrypt input)")
		lotID   = flag.Uint64("lot", 0, "Lot id the bid belongs to")
		amount  = flag.String("amount-out", "", "Amount out as a decimal token amount, e.g. 4.5 (encrypt)")
		modulus = flag.String("modulus", "", "Lot public modulus, hex (encrypt)")
		seedHex = flag.String("seed", "", "32-byte OAEP seed, hex; random if omitted (encrypt)")
		cipher  = flag.String("ciphertext", "", "Sealed bid ciphertext, hex (decrypt)")
		amtIn   = flag.String("amount-in", "", "Bid quote amount, decimal; prints the implied price (decrypt)")
		help    = flag.Bool("help", false, "Show usage information")
	)
	flag.Parse()

	if *help || *mode == "" {
		showUsage()
		if *mode == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	var err error
	switch *mode {
	case "keygen":
		err = runKeygen(*keyPath)
	case "encrypt":
		err = runEncrypt(*lotID, *amount, *modulus, *seedHex)
	case "decrypt":
		err = runDecrypt(*keyPath, *lotID, *cipher, *amtIn)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", *mode)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func runKeygen(path string) error {
	if path == "" {
		return fmt.Errorf("--key is required for keygen")
	}
	priv, err := rsaoaep.GenerateKeyPair(lsbba.ModulusSize * 8)
	if err != nil {
		return err
	}
	modBytes := priv.N.FillBytes(make([]byte, lsbba.ModulusSize))

	rec := keyFile{
		KeyID: uuid.NewString(),
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(priv),
		})),
		ModulusHex:  hex.EncodeToString(modBytes),
		Fingerprint: keyattest.Fingerprint(modBytes),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	fmt.Printf("Generated auction key %s\n", rec.KeyID)
	fmt.Printf("Modulus fingerprint: %s\n", rec.Fingerprint)
	return nil
}

func runEncrypt(lotID uint64, amountStr, modulusHex, seedStr string) error {
	if amountStr == "" || modulusHex == "" {
		return fmt.Errorf("--amount-out and --modulus are required for encrypt")
	}
	amountOut, err := parseTokenAmount(amountStr)
	if err != nil {
		return err
	}
	modBytes, err := hex.DecodeString(modulusHex)
	if err != nil {
		return fmt.Errorf("decode modulus: %w", err)
	}

	seed := make([]byte, rsaoaep.SeedSize)
	if seedStr != "" {
		seed, err = hex.DecodeString(seedStr)
		if err != nil {
			return fmt.Errorf("decode seed: %w", err)
		}
	} else if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}

	message := amountOut.Bytes32()
	label := []byte(strconv.FormatUint(lotID, 10))
	ciphertext, err := rsaoaep.Encrypt(message[:], label, new(big.Int).SetBytes(modBytes), seed)
	if err != nil {
		return err
	}

	fmt.Printf("Amount out:  %s\n", auction.FormatAmount(amountOut))
	fmt.Printf("Seed:        %s\n", hex.EncodeToString(seed))
	fmt.Printf("Ciphertext:  %s\n", hex.EncodeToString(ciphertext))
	return nil
}

func runDecrypt(keyPath string, lotID uint64, cipherHex, amountInStr string) error {
	if keyPath == "" || cipherHex == "" {
		return fmt.Errorf("--key and --ciphertext are required for decrypt")
	}
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	var rec keyFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse key file: %w", err)
	}
	block, _ := pem.Decode([]byte(rec.PrivateKeyPEM))
	if block == nil {
		return fmt.Errorf("key file %s holds no PEM block", keyPath)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return fmt.Errorf("decode ciphertext: %w", err)
	}

	label := []byte(strconv.FormatUint(lotID, 10))
	message, seed, err := rsaoaep.DecryptWithSeed(ciphertext, label, priv)
	if err != nil {
		return err
	}
	amountOut := new(uint256.Int).SetBytes(message)

	claim := map[string]string{
		"amount_out": amountOut.Dec(),
		"seed":       hex.EncodeToString(seed),
	}
	out, err := json.MarshalIndent(claim, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "Amount out: %s tokens\n", auction.FormatAmount(amountOut))
	if amountInStr != "" {
		amountIn, err := parseTokenAmount(amountInStr)
		if err != nil {
			return err
		}
		price := auction.Price(amountIn, amountOut)
		fmt.Fprintf(os.Stderr, "Bid price:  %s quote per base\n", auction.FormatPrice(price))
	}
	return nil
}

// parseTokenAmount converts a decimal token amount like "4.5" into its
// 18-decimal fixed-point representation.
func parseTokenAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	scaled := d.Shift(18)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than 18 decimal places", s)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow || v.BitLen() > auction.MaxAmountBits {
		return nil, fmt.Errorf("amount %q is too large", s)
	}
	return v, nil
}

func showUsage() {
	fmt.Println("Sealed-Bid Auction Key Tool")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  lsbba-keytool --mode keygen --key key.json")
	fmt.Println("  lsbba-keytool --mode encrypt --lot 1 --amount-out 4.5 --modulus <hex> [--seed <hex>]")
	fmt.Println("  lsbba-keytool --mode decrypt --key key.json --lot 1 --ciphertext <hex> [--amount-in 9]")
	fmt.Println("")
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Success")
	fmt.Println("  1 - Invalid usage")
	fmt.Println("  2 - Runtime error")
}
