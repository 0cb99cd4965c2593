package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ghalamif/spillq/pkg/spillq"
)

func main() {
	flow, err := spillq.Conf("../../data/config.yaml", spillq.WithFlowOptions(spillq.WithoutMetricsServer()))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(batch []spillq.Record) error {
		for _, rec := range batch {
			fmt.Printf("%s key=%s seq=%d attrs=%v\n",
				rec.Timestamp.Format(time.RFC3339Nano),
				rec.Key,
				rec.Seq,
				rec.Attrs,
			)
		}
		return nil
	}

	if _, err := flow.Run(context.Background(), os.Stdin, spillq.StreamOutCallback("stdout", callback)); err != nil {
		log.Fatalf("spool error: %v", err)
	}
}
