// keygen pre-provisions monthly signing keypairs so a deployment never
// generates its first key under live traffic at the month boundary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"hazyna.org/internal/keystore"
)

func main() {
	log.SetFlags(0)
	var (
		dir    = flag.String("dir", "keys", "key material directory")
		ahead  = flag.Int("ahead", 1, "how many future periods to provision in addition to the current one")
		listOp = flag.Bool("list", false, "list existing periods and exit")
	)
	flag.Parse()

	store, err := keystore.NewFSStore(*dir)
	if err != nil {
		log.Fatalf("keystore: %v", err)
	}
	ctx := context.Background()

	if *listOp {
		periods, err := store.ListPeriods(ctx)
		if err != nil {
			log.Fatalf("list periods: %v", err)
		}
		for _, p := range periods {
			fmt.Println(p)
		}
		return
	}

	now := time.Now().UTC()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= *ahead; i++ {
		period := keystore.CurrentPeriod(month.AddDate(0, i, 0))
		if _, err := store.EnsurePeriodKey(ctx, period); err != nil {
			log.Fatalf("ensure %s: %v", period, err)
		}
		fmt.Printf("ensured %s\n", period)
	}
}
