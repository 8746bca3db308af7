// Package main provides a terminal chat client for pairtalk students.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// chatClient is implemented by the WebSocket and the polling client.
type chatClient interface {
	Join(ctx context.Context, name string) error
	Send(ctx context.Context, text string) error
	Refresh(ctx context.Context) error
	Close() error
}

func main() {
	server := flag.String("server", "http://localhost:8080", "pairtalk server address")
	name := flag.String("name", "", "your name as it appears in the class list")
	poll := flag.Bool("poll", false, "re-render over HTTP on a fixed interval instead of WebSocket push")
	interval := flag.Duration("interval", 0, "poll interval (default: the server's refresh interval)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -name <your name> [-server URL] [-poll]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client chatClient
	if *poll {
		client = NewPollClient(*server, *interval, os.Stdout)
	} else {
		wsClient, err := DialWS(*server, os.Stdout)
		if err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		client = wsClient
	}
	defer client.Close()

	if err := client.Join(ctx, *name); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nBye!")
			return
		case input, ok := <-lines:
			if !ok {
				return
			}
			input = strings.TrimSpace(input)
			switch input {
			case "":
				continue
			case "/quit":
				fmt.Println("Bye!")
				return
			case "/refresh":
				if err := client.Refresh(ctx); err != nil {
					log.Printf("Refresh failed: %v", err)
				}
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := client.Send(sendCtx, input); err != nil {
				log.Printf("Send failed: %v", err)
			}
			cancel()
		}
	}
}
