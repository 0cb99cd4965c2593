package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/spillq"
	"github.com/ghalamif/spillq/internal/ports"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "spool":
		err = spoolCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("spillq %s: %v", cmd, err)
	}
}

func spoolCommand(args []string) error {
	fs := flag.NewFlagSet("spool", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	inPath := fs.String("in", "-", "JSON-lines input file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := spillq.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var in io.Reader = os.Stdin
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := flow.Run(ctx, in)
	fmt.Fprintf(os.Stderr, "spooled %d records, drained %d\n", res.Filled, res.Drained)
	return err
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := spillq.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets, err := scrapeMetrics(resp.Body,
		ports.MetricRecordsSpilled,
		ports.MetricRecordsDrained,
		ports.MetricQueueSize,
		ports.MetricSegmentBytes,
	)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] spilled=%.0f drained=%.0f queue=%.0f segment_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets[ports.MetricRecordsSpilled],
		targets[ports.MetricRecordsDrained],
		targets[ports.MetricQueueSize],
		targets[ports.MetricSegmentBytes],
	)
	return nil
}

// scrapeMetrics picks unlabelled samples for names out of a text exposition.
func scrapeMetrics(r io.Reader, names ...string) (map[string]float64, error) {
	targets := make(map[string]float64, len(names))
	for _, n := range names {
		targets[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	return targets, scanner.Err()
}

func printUsage() {
	fmt.Printf(`spillq CLI

Usage:
  spillq <command> [flags]

Commands:
  spool      Buffer JSON-lines records through a disk-backed queue and drain them to the sink
  validate   Load and validate a config file
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  spillq spool -config ./data/config.yaml -in records.jsonl
  spillq validate -config ./data/config.yaml
  spillq stats -url http://localhost:9100/metrics -interval 1s
`)
}
