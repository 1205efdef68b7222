package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/shopspring/decimal"
)

func main() {
	target := flag.String("target", "", "Mobile number, national ID or e-wallet ID")
	amount := flag.String("amount", "", "Amount in THB (omit for a static code)")
	prefix := flag.String("mobile-prefix", promptpay.DefaultMobilePrefix, "Prefix that replaces the leading 0 of mobile numbers")
	verify := flag.String("verify", "", "Decode and check an existing payload instead of generating one")
	flag.Parse()

	if *verify != "" {
		p, err := promptpay.Decode(*verify)
		if err != nil {
			log.Fatalf("Invalid payload: %v", err)
		}
		fmt.Printf("target:   %s %s\n", p.Target.Kind, p.Target.Value)
		if p.Amount != nil {
			fmt.Printf("amount:   %s\n", promptpay.FormatAmount(*p.Amount))
		} else {
			fmt.Println("amount:   (static)")
		}
		fmt.Printf("checksum: %s OK\n", p.Checksum)
		return
	}

	if *target == "" {
		flag.Usage()
		os.Exit(2)
	}

	var amt *decimal.Decimal
	if *amount != "" {
		d, err := promptpay.ParseAmount(*amount)
		if err != nil {
			log.Fatalf("Invalid amount: %v", err)
		}
		amt = &d
	}

	payload, err := promptpay.NewBuilder(promptpay.MobilePolicy{Prefix: *prefix}).Build(*target, amt)
	if err != nil {
		log.Fatalf("Failed to build payload: %v", err)
	}
	fmt.Println(payload)
}
