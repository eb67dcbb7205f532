package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	videoscout "video-scout/agents/video-scout"
	"video-scout/shared/config"
	"video-scout/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := videoscout.NewVideoScoutAgent(cfg)
	s := scheduler.New(cfg, agent)

	if err := run(ctx, cfg, agent, s); err != nil {
		agent.Close()
		log.Fatalf("%v", err)
	}
	if err := agent.Close(); err != nil {
		log.Printf("Warning: failed to close table store: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, agent scheduler.Agent, s *scheduler.Scheduler) error {
	if cfg.Schedule == "" {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize agent: %w", err)
		}
		if err := s.RunOnce(ctx); err != nil {
			return fmt.Errorf("failed to run: %w", err)
		}
		return nil
	}

	fmt.Println("Starting scheduler...")
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}
