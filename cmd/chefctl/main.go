// Command chefctl talks to a running chef gateway over NATS.
//
//	chefctl ask "a quick pasta for two"
//	chefctl health
//	chefctl watch
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/chef-gateway/pkg/client"
)

func main() {
	natsURL := flag.String("nats", envOr("NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
	service := flag.String("service", client.DefaultServiceName, "Service name used in health and monitoring subjects")
	subject := flag.String("subject", client.DefaultSubject, "Work queue subject ask publishes to")
	model := flag.String("model", "", "Backend model override for ask")
	timeout := flag.Duration("timeout", 3*time.Minute, "How long ask waits for an answer")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: chefctl [flags] ask <prompt> | health | watch\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch flag.Arg(0) {
	case "ask":
		err = ask(ctx, *natsURL, *subject, *model, *timeout, strings.Join(flag.Args()[1:], " "))
	case "health":
		err = health(ctx, *natsURL, *service)
	case "watch":
		err = watch(ctx, *natsURL, *service)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func ask(ctx context.Context, natsURL, subject, model string, timeout time.Duration, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("ask needs a prompt")
	}

	c, err := client.NewNATSClient(natsURL, "chefctl")
	if err != nil {
		return err
	}
	defer c.Close()
	c.SetTimeout(timeout)
	c.SetSubject(subject)

	resp, err := c.Query(ctx, client.ChatQuery{
		Model:    model,
		Messages: []client.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Response.Recipe)
	if resp.Degraded {
		fmt.Fprintln(os.Stderr, "(backend unavailable, showing a fallback recipe)")
	}
	return nil
}

func health(ctx context.Context, natsURL, service string) error {
	c, err := client.NewNATSClient(natsURL, "chefctl")
	if err != nil {
		return err
	}
	defer c.Close()
	c.SetServiceName(service)

	status, err := c.CheckHealth(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

// watch prints heartbeats and backpressure reports until interrupted.
func watch(ctx context.Context, natsURL, service string) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	subjects := []string{
		service + ".heartbeat",
		"monitoring.backpressure." + service,
	}
	for _, subject := range subjects {
		if _, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			var v map[string]any
			if err := json.Unmarshal(msg.Data, &v); err != nil {
				log.Printf("%s: unreadable payload: %v", msg.Subject, err)
				return
			}
			log.Printf("%s status=%v pending=%v active=%v", msg.Subject, v["status"], v["pending_messages"], v["active_processing"])
		}); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.Printf("Watching %s", strings.Join(subjects, ", "))
	<-ctx.Done()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
