package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/sidechannel"
)

// #region main

func main() {
	addr := flag.String("addr", envOr("ARENA_GRPC_ADDR", "localhost:50061"), "controller side channel address")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	check := flag.Bool("check", false, "validate the file locally without sending it")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: push [--addr host:port] [--timeout 10s] [--check] config.yaml|-")
		os.Exit(2)
	}

	data, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		os.Exit(1)
	}

	b, err := payload.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if *check {
		fmt.Printf("ok: %d arenas, ids %v, randomize=%v\n", len(b.Arenas), b.IDs(), b.RandomizeArenas)
		return
	}

	client, err := sidechannel.NewClient(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	versionID, err := client.Push(ctx, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "push: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("accepted: %d arenas as batch %s\n", len(b.Arenas), versionID)
}

// #endregion main

// #region helpers

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
