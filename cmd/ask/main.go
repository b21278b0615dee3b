package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"openai-ask/internal/chat"
	"openai-ask/internal/node"
	"openai-ask/pkg/config"
	"openai-ask/pkg/logger"
)

// maxConcurrentAsks caps parallel requests so a local llama.cpp server is not
// flooded when many images are passed at once.
const maxConcurrentAsks = 4

func main() {
	question := flag.String("question", "", "question to ask (default: configured prompt-inversion question)")
	system := flag.String("system", "", "system prompt override")
	model := flag.String("model", "", "model override")
	contentSource := flag.String("content-source", "", "content_only, auto, or reasoning_only")
	raw := flag.Bool("raw", false, "also print the raw JSON channel")
	flag.Parse()

	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	defaults := node.ParamsFromConfig(cfg)
	if *question != "" {
		defaults.Question = *question
	}
	if *system != "" {
		defaults.SystemPrompt = *system
	}
	if *model != "" {
		defaults.Model = *model
	}
	if *contentSource != "" {
		defaults.ContentSource = *contentSource
	}

	askNode := node.New(chat.NewClient())
	ctx := context.Background()

	images := flag.Args()
	if len(images) == 0 {
		// Text-only ask
		printResult("", askNode.Ask(ctx, defaults), *raw)
		return
	}

	// Fan out over the images with bounded concurrency
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAsks)

	results := make([]*node.Result, len(images))
	for i, path := range images {
		idx := i
		imagePath := path
		g.Go(func() error {
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", imagePath, err)
			}
			p := defaults
			p.Image = data
			results[idx] = askNode.Ask(gctx, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal("Ask run failed", zap.Error(err))
	}

	for i, path := range images {
		printResult(path, results[i], *raw)
	}
}

func printResult(label string, result *node.Result, raw bool) {
	if label != "" {
		fmt.Printf("=== %s ===\n", label)
	}
	fmt.Println("positive:")
	fmt.Println(result.Positive)
	fmt.Println()
	fmt.Println("negative:")
	fmt.Println(result.Negative)
	fmt.Println()
	fmt.Println("answer_text:")
	fmt.Println(result.AnswerText)
	if raw {
		fmt.Println()
		fmt.Println("raw_json:")
		fmt.Println(result.RawJSON)
	}
	fmt.Println()
}
