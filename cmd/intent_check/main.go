// Command intent_check classifies chat messages from flags or stdin and prints
// the resulting intent JSON, one line per message.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lucra-chat/internal/config"
	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/llm"
)

func main() {
	textFlag := flag.String("text", "", "Message to classify (reads stdin lines when empty)")
	useLLM := flag.Bool("llm", false, "Classify with the configured LLM provider, falling back to the rule-based parser")
	flag.Parse()

	var extractor *llm.Extractor
	if *useLLM {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		extractor, err = llm.NewExtractorFromConfig(context.Background(), &cfg.LLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "LLM unavailable, using fallback parser: %v\n", err)
		}
	}

	classify := func(text string) {
		source := "fallback"
		result := intent.Parse(text)
		if extractor != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			parsed, err := extractor.ExtractIntent(ctx, text)
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "LLM error: %v\n", err)
			} else {
				result, source = parsed, extractor.Provider()
			}
		}
		fmt.Printf("%s\t%s\n", source, result.JSON())
	}

	if *textFlag != "" {
		classify(*textFlag)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			classify(line)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
}
