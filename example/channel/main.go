package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ghalamif/spillq"
)

func main() {
	flow, err := spillq.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, batches, closeBatches := spillq.NewChannelSink("fanout", 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fanoutWorker("forward", batches)
	}()

	res, err := flow.Run(context.Background(), os.Stdin, spillq.StreamOutSink(sink))
	closeBatches()
	wg.Wait()
	if err != nil {
		log.Fatalf("spool error: %v", err)
	}
	fmt.Printf("drained %d records\n", res.Drained)
}

func fanoutWorker(name string, batches <-chan []spillq.Record) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d records at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
