package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ghalamif/spillq"
)

func main() {
	// Keep two strings in memory; the rest go to a snappy-compressed segment.
	q, err := spillq.New(spillq.StringCodec(), 2, []string{os.TempDir()},
		spillq.WithCompression(spillq.CompressionSnappy),
		spillq.WithRemoveOnClose(true),
	)
	if err != nil {
		log.Fatalf("new queue: %v", err)
	}
	defer q.Close()

	for i := 0; i < 10; i++ {
		if err := q.Add(fmt.Sprintf("record-%02d", i)); err != nil {
			log.Fatalf("add: %v", err)
		}
	}
	st := q.Stats()
	fmt.Printf("size=%d ram=%d disk=%d segment=%s\n", st.Size, st.RamRecords, st.DiskRecords, st.Segment)

	for !q.IsEmpty() {
		s, err := q.Remove()
		if err != nil {
			log.Fatalf("remove: %v", err)
		}
		fmt.Println(s)
	}
	fmt.Printf("writable after drain: %v\n", q.CanAdd())
}
